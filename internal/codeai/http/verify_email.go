package http

import (
	"net/http"

	"github.com/aussiebroadwan/codeai/internal/codeai/service"
	"github.com/aussiebroadwan/codeai/pkg/httpx"
)

// VerifyEmailHandler redeems the verification link from the registration email.
type VerifyEmailHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP handles GET /verify/{token}
//
//	@Summary		Verify an email address
//	@Description	Consumes the one-time token from the verification email and
//	@Description	marks the account as verified.
//	@Tags			Auth
//	@Produce		json
//	@Param			token	path		string					true	"Verification token"
//	@Success		200		{object}	httpx.MessageResponse	"Email verified"
//	@Failure		400		{object}	httpx.ErrorResponse		"Invalid or expired token"
//	@Router			/verify/{token} [get].
func (h *VerifyEmailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Missing verification token")
		return
	}

	if err := h.AuthService.VerifyEmail(r.Context(), token); err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, httpx.MessageResponse{
		Message: "Email verified. You can now log in.",
	})
}
