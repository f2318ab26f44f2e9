package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/aussiebroadwan/codeai/internal/codeai/domain"
	"github.com/aussiebroadwan/codeai/internal/codeai/mail"
	"github.com/aussiebroadwan/codeai/internal/codeai/store"
	"github.com/aussiebroadwan/codeai/pkg/cryptox"
	"github.com/aussiebroadwan/codeai/pkg/slogx"
)

const (
	// MFACodeDigits is the length of the emailed one-time code.
	MFACodeDigits = 6

	// MaxMFAAttempts is the number of failed verifications before the account
	// locks out.
	MaxMFAAttempts = 3

	// DefaultMFACodeTTL bounds how long an issued code stays redeemable.
	DefaultMFACodeTTL = 10 * time.Minute

	// DefaultLockoutDuration is how long a locked account stays locked,
	// measured from the last failed attempt.
	DefaultLockoutDuration = 15 * time.Minute
)

// MFAService issues and verifies the emailed one-time login codes. Codes are
// random, short-lived, and stored only as fingerprints. Three consecutive
// failures lock the account until the lockout window elapses.
type MFAService struct {
	Store  store.Store
	Mailer mail.Mailer

	CodeTTL         time.Duration
	LockoutDuration time.Duration

	// Now is swappable for tests. Defaults to time.Now.
	Now func() time.Time
}

func (s *MFAService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *MFAService) codeTTL() time.Duration {
	if s.CodeTTL > 0 {
		return s.CodeTTL
	}
	return DefaultMFACodeTTL
}

func (s *MFAService) lockoutDuration() time.Duration {
	if s.LockoutDuration > 0 {
		return s.LockoutDuration
	}
	return DefaultLockoutDuration
}

// locked reports whether the user is currently locked out. A lockout that has
// run its course is cleared lazily on the next interaction.
func (s *MFAService) locked(ctx context.Context, user domain.User, now time.Time) (bool, error) {
	if user.MFAAttempts < MaxMFAAttempts {
		return false, nil
	}
	if user.LastLoginAttempt != nil && now.Before(user.LastLoginAttempt.Add(s.lockoutDuration())) {
		return true, nil
	}

	// Lockout has expired, reset the counter so the user gets a fresh budget.
	if err := s.Store.Users().ResetMFAAttempts(ctx, user.ID); err != nil {
		return false, err
	}
	return false, nil
}

// Issue generates a fresh one-time code for the user, stores its fingerprint
// with an expiry, and emails the code. Issuing invalidates any prior
// unconsumed code. Returns ErrAccountLocked while a lockout is active.
func (s *MFAService) Issue(ctx context.Context, user domain.User) error {
	now := s.now()

	isLocked, err := s.locked(ctx, user, now)
	if err != nil {
		return err
	}
	if isLocked {
		return ErrAccountLocked
	}

	code, err := cryptox.GenerateNumericCode(MFACodeDigits)
	if err != nil {
		return fmt.Errorf("failed to generate login code: %w", err)
	}

	hash := cryptox.FingerprintToken(code)
	expiresAt := now.Add(s.codeTTL())

	if err := s.Store.Users().SetMFACode(ctx, user.ID, hash, expiresAt, now); err != nil {
		return fmt.Errorf("failed to store login code: %w", err)
	}

	// The code is only persisted as a fingerprint, so delivery happens after
	// the write. A delivery failure is logged rather than failing the login,
	// the user can retry and a fresh code will be issued.
	body := fmt.Sprintf(
		"Your one-time login code is %s.\r\n\r\nIt expires in %d minutes. If you did not try to log in, you can ignore this email.",
		code, int(s.codeTTL().Minutes()),
	)
	if err := s.Mailer.Send(ctx, user.Email, "Your login code", body); err != nil {
		slogx.FromContext(ctx).Error("failed to deliver login code email",
			"user_id", user.ID, "error", err)
	}

	return nil
}

// Verify checks a submitted code against the user's pending code. On success
// the code is consumed and the attempt counter reset. A wrong or expired code
// counts as a failed attempt and reports ErrInvalidMFACode; once the counter
// reaches the maximum, every later submission is rejected up front with
// ErrTooManyMFAAttempts until the lockout elapses. Submissions made while no
// code is pending are rejected without touching the counter, so a stranger
// posting garbage codes cannot lock an account that never asked for one.
func (s *MFAService) Verify(ctx context.Context, user domain.User, code string) error {
	now := s.now()

	isLocked, err := s.locked(ctx, user, now)
	if err != nil {
		return err
	}
	if isLocked {
		return ErrTooManyMFAAttempts
	}

	if user.MFACodeHash == nil || user.MFACodeExpiresAt == nil {
		return ErrInvalidMFACode
	}

	valid := now.Before(*user.MFACodeExpiresAt) &&
		subtle.ConstantTimeCompare(
			[]byte(*user.MFACodeHash),
			[]byte(cryptox.FingerprintToken(code)),
		) == 1

	if !valid {
		if _, err := s.Store.Users().IncrementMFAAttempts(ctx, user.ID, now); err != nil {
			return err
		}
		return ErrInvalidMFACode
	}

	return s.Store.Users().ClearMFACode(ctx, user.ID)
}
