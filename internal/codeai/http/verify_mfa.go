package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/codeai/internal/codeai/service"
	"github.com/aussiebroadwan/codeai/pkg/httpx"
	"github.com/aussiebroadwan/codeai/pkg/slogx"
)

// VerifyMFARequest is the JSON body for POST /api/verify-mfa.
type VerifyMFARequest struct {
	Email string `json:"email" example:"user@example.com"`
	Code  string `json:"mfa_code" example:"123456"`
}

// VerifyMFAResponse carries the session token issued on a completed login.
type VerifyMFAResponse struct {
	Message   string `json:"message" example:"Login successful"`
	Token     string `json:"token"`
	TokenType string `json:"token_type" example:"Bearer"`
	ExpiresAt string `json:"expires_at" example:"2026-01-02T15:04:05Z"`
}

// VerifyMFAHandler completes a login by redeeming the emailed one-time code.
type VerifyMFAHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP handles POST /api/verify-mfa
//
//	@Summary		Redeem a one-time login code
//	@Description	Verifies the emailed code and returns a bearer session token.
//	@Description	Three consecutive failures lock the account for fifteen minutes.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		VerifyMFARequest	true	"Email and code"
//	@Success		200		{object}	VerifyMFAResponse	"Session token"
//	@Failure		401		{object}	httpx.ErrorResponse	"Wrong or expired code"
//	@Failure		404		{object}	httpx.ErrorResponse	"Unknown email"
//	@Failure		429		{object}	httpx.ErrorResponse	"Locked out or too many attempts"
//	@Router			/api/verify-mfa [post].
func (h *VerifyMFAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req VerifyMFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse verify-mfa request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	token, session, err := h.AuthService.VerifyMFA(ctx, req.Email, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, VerifyMFAResponse{
		Message:   "Login successful",
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: session.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}
