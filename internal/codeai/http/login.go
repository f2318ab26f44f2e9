package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/codeai/internal/codeai/service"
	"github.com/aussiebroadwan/codeai/pkg/httpx"
	"github.com/aussiebroadwan/codeai/pkg/slogx"
)

// LoginRequest is the JSON body for POST /api/login.
type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"correct horse battery"`
}

// LoginHandler handles the password step of login.
type LoginHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP handles POST /api/login
//
//	@Summary		Log in with email and password
//	@Description	Checks the password for a verified account. On success a
//	@Description	one-time code is emailed; complete the login via /api/verify-mfa.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest			true	"Email and password"
//	@Success		200		{object}	httpx.MessageResponse	"Code sent"
//	@Failure		401		{object}	httpx.ErrorResponse		"Invalid credentials or unverified email"
//	@Failure		429		{object}	httpx.ErrorResponse		"Account locked or too many attempts"
//	@Router			/api/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse login request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if err := h.AuthService.Login(ctx, req.Email, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, httpx.MessageResponse{
		Message: "A one-time code has been sent to your email.",
	})
}
