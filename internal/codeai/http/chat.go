package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/codeai/internal/codeai/domain"
	"github.com/aussiebroadwan/codeai/internal/codeai/service"
	"github.com/aussiebroadwan/codeai/pkg/httpx"
	"github.com/aussiebroadwan/codeai/pkg/slogx"
)

// ChatHandler handles generation requests for authenticated sessions.
type ChatHandler struct {
	ChatService *service.ChatService
}

// ServeHTTP handles POST /api/chat
//
//	@Summary		Generate a model response
//	@Description	Sends the user's message to the code model and returns the
//	@Description	generated text. Requires an authenticated session.
//	@Tags			Chat
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		domain.ChatRequest	true	"User message"
//	@Success		200		{object}	domain.ChatResponse	"Generated text"
//	@Failure		401		{object}	httpx.ErrorResponse	"Invalid or missing session"
//	@Failure		429		{object}	httpx.ErrorResponse	"Rate limited"
//	@Failure		500		{object}	httpx.ErrorResponse	"Generation failed"
//	@Failure		503		{object}	httpx.ErrorResponse	"Model unavailable"
//	@Router			/api/chat [post].
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse chat request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	out, err := h.ChatService.Generate(ctx, req.Message)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, domain.ChatResponse{Response: out})
}
