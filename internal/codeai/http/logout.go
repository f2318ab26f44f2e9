package http

import (
	"net/http"

	"github.com/aussiebroadwan/codeai/internal/codeai/service"
	"github.com/aussiebroadwan/codeai/pkg/httpx"
	"github.com/aussiebroadwan/codeai/pkg/slogx"
)

// LogoutHandler ends the calling session.
type LogoutHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP handles POST /api/logout
//
//	@Summary		Log out
//	@Description	Deletes the calling session, immediately invalidating its token.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	httpx.MessageResponse	"Logged out"
//	@Failure		401	{object}	httpx.ErrorResponse		"Invalid or missing session"
//	@Router			/api/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sessionID, ok := ctx.Value(httpx.CtxKeySessionID).(string)
	if !ok || sessionID == "" {
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_session", "Session is invalid or has expired.")
		return
	}

	if err := h.AuthService.Logout(ctx, sessionID); err != nil {
		log.Error("failed to delete session", "session_id", sessionID, "err", err)
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, httpx.MessageResponse{Message: "Logged out."})
}
