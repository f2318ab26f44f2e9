package service

import (
	"context"
	"strings"
	"sync"

	"github.com/aussiebroadwan/codeai/internal/codeai/llm"
	"github.com/aussiebroadwan/codeai/pkg/slogx"
)

// ChatService owns the single handle to the model server and guards requests
// behind a readiness flag. The flag is set by the startup probe and flipped
// off whenever the server becomes unreachable, so callers get a clean
// "unavailable" instead of piling up doomed requests.
type ChatService struct {
	Client *llm.Client

	mu    sync.RWMutex
	ready bool
}

// CheckReadiness probes the model server and verifies the configured model is
// present, updating the readiness flag.
func (s *ChatService) CheckReadiness(ctx context.Context) error {
	err := s.Client.CheckRunning(ctx)
	if err == nil {
		err = s.Client.ModelExists(ctx)
	}

	s.mu.Lock()
	s.ready = err == nil
	s.mu.Unlock()

	return err
}

// Ready reports the last observed readiness of the model server.
func (s *ChatService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Generate produces a model response for the user's message. Returns
// ErrModelUnavailable when the model server is down or the model missing, and
// ErrGeneration for any other failure.
func (s *ChatService) Generate(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrInvalidRequest
	}

	if !s.Ready() {
		// One recheck in case the server came back since the last probe.
		if err := s.CheckReadiness(ctx); err != nil {
			return "", ErrModelUnavailable
		}
	}

	out, err := s.Client.Generate(ctx, message, nil)
	if err != nil {
		if llm.IsNotRunning(err) || llm.IsModelNotFound(err) {
			s.mu.Lock()
			s.ready = false
			s.mu.Unlock()
			return "", ErrModelUnavailable
		}
		slogx.FromContext(ctx).Error("generation failed", "error", err)
		return "", ErrGeneration
	}

	return out, nil
}
