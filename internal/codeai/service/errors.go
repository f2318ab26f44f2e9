package service

import "errors"

// Service-level sentinel errors. The HTTP layer maps these onto status codes
// and OAuth-style error strings, so the values double as wire error codes.
var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrDuplicateEmail     = errors.New("duplicate_email")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrEmailNotVerified   = errors.New("email_not_verified")
	ErrAccountLocked      = errors.New("account_locked")
	ErrInvalidMFACode     = errors.New("invalid_mfa_code")
	ErrTooManyMFAAttempts = errors.New("too_many_mfa_attempts")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrInvalidVerifyToken = errors.New("invalid_verify_token")
	ErrInvalidSession     = errors.New("invalid_session")
	ErrModelUnavailable   = errors.New("model_unavailable")
	ErrGeneration         = errors.New("generation_error")
)
