package domain

import "time"

// User is a registered account. MFA fields hold the fingerprint of the
// current emailed one-time code; at most one code is valid at a time and it
// is cleared the moment a verification succeeds.
type User struct {
	ID           string
	Email        string
	PasswordHash string // argon2 encoded

	// VerifiedAt is set once the email-verification link is followed (nullable).
	VerifiedAt *time.Time

	// VerifyTokenHash is the SHA-256 fingerprint of the outstanding
	// email-verification token (nullable).
	VerifyTokenHash      *string
	VerifyTokenExpiresAt *time.Time

	// MFACodeHash is the SHA-256 fingerprint of the current one-time code
	// (nullable). MFACodeExpiresAt bounds its validity.
	MFACodeHash      *string
	MFACodeExpiresAt *time.Time

	// MFAAttempts counts consecutive failed verifications. Three failures
	// lock verification for the lockout period measured from LastLoginAttempt.
	MFAAttempts      int
	LastLoginAttempt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsVerified reports whether the email address has been confirmed.
func (u User) IsVerified() bool { return u.VerifiedAt != nil }
