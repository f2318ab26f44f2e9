package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/codeai/internal/codeai/service"
	"github.com/aussiebroadwan/codeai/pkg/httpx"
	"github.com/aussiebroadwan/codeai/pkg/slogx"
)

// RegisterRequest is the JSON body for POST /api/register.
type RegisterRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"correct horse battery"`
}

// RegisterHandler handles account registration.
type RegisterHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP handles POST /api/register
//
//	@Summary		Register a new account
//	@Description	Creates an unverified account and emails a verification link.
//	@Description	The account cannot log in until the email has been verified.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RegisterRequest			true	"Email and password"
//	@Success		201		{object}	httpx.MessageResponse	"Account created"
//	@Failure		400		{object}	httpx.ErrorResponse		"Malformed request or duplicate email"
//	@Failure		429		{object}	httpx.ErrorResponse		"Too many attempts"
//	@Router			/api/register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse register request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	user, err := h.AuthService.Register(ctx, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	log.Info("account registered", "user_id", user.ID)

	httpx.WriteJSON(w, http.StatusCreated, httpx.MessageResponse{
		Message: "Account created. Check your email for a verification link.",
	})
}
