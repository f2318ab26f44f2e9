package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/codeai/internal/codeai/service"
	"github.com/aussiebroadwan/codeai/pkg/httpx"
)

// writeServiceError maps service sentinel errors onto HTTP status codes and
// the uniform error body. Unknown errors become a generic 500 so internals
// never leak to clients.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "The request is missing or has malformed fields.")
	case errors.Is(err, service.ErrDuplicateEmail):
		httpx.WriteError(w, http.StatusBadRequest,
			"duplicate_email", "An account with this email already exists.")
	case errors.Is(err, service.ErrInvalidVerifyToken):
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_verify_token", "The verification link is invalid or has expired.")
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_credentials", "Email or password is incorrect.")
	case errors.Is(err, service.ErrEmailNotVerified):
		httpx.WriteError(w, http.StatusUnauthorized,
			"email_not_verified", "Verify your email before logging in.")
	case errors.Is(err, service.ErrInvalidMFACode):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_mfa_code", "The code is incorrect or has expired.")
	case errors.Is(err, service.ErrInvalidSession):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_session", "Session is invalid or has expired.")
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound,
			"user_not_found", "No account exists for this email.")
	case errors.Is(err, service.ErrAccountLocked):
		httpx.WriteError(w, http.StatusTooManyRequests,
			"account_locked", "Account is temporarily locked. Try again later.")
	case errors.Is(err, service.ErrTooManyMFAAttempts):
		httpx.WriteError(w, http.StatusTooManyRequests,
			"too_many_mfa_attempts", "Too many failed codes. Try again later.")
	case errors.Is(err, service.ErrModelUnavailable):
		httpx.WriteError(w, http.StatusServiceUnavailable,
			"model_unavailable", "The model is not available right now.")
	case errors.Is(err, service.ErrGeneration):
		httpx.WriteError(w, http.StatusInternalServerError,
			"generation_error", "Generation failed. Please try again.")
	default:
		httpx.WriteError(w, http.StatusInternalServerError,
			"server_error", "An unexpected error occurred.")
	}
}
