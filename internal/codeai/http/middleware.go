package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/codeai/internal/codeai/service"
	"github.com/aussiebroadwan/codeai/pkg/httpx"
)

// AuthnMiddleware validates the bearer token and its backing session, then
// injects user ID, email, and session ID into the request context. Sessions
// past their idle or absolute expiry are rejected with 401.
func AuthnMiddleware(auth *service.AuthService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized,
					"invalid_session", "Missing or malformed Authorization header.")
				return
			}

			claims, session, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized,
					"invalid_session", "Session is invalid or has expired.")
				return
			}

			ctx := context.WithValue(r.Context(), httpx.CtxKeyUserID, claims.Subject)
			ctx = context.WithValue(ctx, httpx.CtxKeyEmail, claims.Email)
			ctx = context.WithValue(ctx, httpx.CtxKeySessionID, session.ID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
