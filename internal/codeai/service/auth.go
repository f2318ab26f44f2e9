package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/codeai/internal/codeai/domain"
	"github.com/aussiebroadwan/codeai/internal/codeai/mail"
	"github.com/aussiebroadwan/codeai/internal/codeai/store"
	"github.com/aussiebroadwan/codeai/pkg/cryptox"
	"github.com/aussiebroadwan/codeai/pkg/idx"
	"github.com/aussiebroadwan/codeai/pkg/jwtx"
	"github.com/aussiebroadwan/codeai/pkg/slogx"
)

const (
	// DefaultSessionIdleTimeout logs a session out after this much inactivity.
	DefaultSessionIdleTimeout = 30 * time.Minute

	// DefaultVerifyTokenTTL bounds how long an email-verification link works.
	DefaultVerifyTokenTTL = 24 * time.Hour

	minPasswordLength = 8
)

// AuthService implements registration, email verification, password login,
// one-time-code verification, and session management.
type AuthService struct {
	Store    store.Store
	Keypair  *jwtx.Keypair
	Verifier *jwtx.Verifier
	Mailer   mail.Mailer
	MFA      *MFAService

	Issuer  string
	BaseURL string // public base URL used to build verification links

	SessionTTL     time.Duration
	IdleTimeout    time.Duration
	VerifyTokenTTL time.Duration

	// Now is swappable for tests. Defaults to time.Now.
	Now func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AuthService) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return jwtx.DefaultSessionTokenTTL
}

func (s *AuthService) idleTimeout() time.Duration {
	if s.IdleTimeout > 0 {
		return s.IdleTimeout
	}
	return DefaultSessionIdleTimeout
}

func (s *AuthService) verifyTokenTTL() time.Duration {
	if s.VerifyTokenTTL > 0 {
		return s.VerifyTokenTTL
	}
	return DefaultVerifyTokenTTL
}

// Register creates an unverified account and emails a verification link.
// Email matching is exact, "Bob@example.com" and "bob@example.com" are two
// different accounts.
func (s *AuthService) Register(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, ErrInvalidRequest
	}
	if len(password) < minPasswordLength {
		return domain.User{}, ErrInvalidRequest
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to generate verification token: %w", err)
	}

	now := s.now()
	tokenHash := cryptox.FingerprintToken(token)
	tokenExpiry := now.Add(s.verifyTokenTTL())

	user := domain.User{
		ID:                   idx.New().String(),
		Email:                email,
		PasswordHash:         hash,
		VerifyTokenHash:      &tokenHash,
		VerifyTokenExpiresAt: &tokenExpiry,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrDuplicateEmail
		}
		return domain.User{}, err
	}

	// Delivery failure does not undo the registration. The link can be
	// re-sent by support tooling, and the token is already persisted.
	link := strings.TrimRight(s.BaseURL, "/") + "/verify/" + token
	body := fmt.Sprintf(
		"Welcome to CodeAI!\r\n\r\nVerify your email by visiting:\r\n%s\r\n\r\nThe link expires in %d hours.",
		link, int(s.verifyTokenTTL().Hours()),
	)
	if err := s.Mailer.Send(ctx, email, "Verify your email", body); err != nil {
		slogx.FromContext(ctx).Error("failed to deliver verification email",
			"user_id", user.ID, "error", err)
	}

	return user, nil
}

// VerifyEmail consumes a verification-link token and marks the account
// verified. Unknown and expired tokens are indistinguishable to the caller.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	tokenHash := cryptox.FingerprintToken(token)

	user, err := s.Store.Users().GetUserByVerifyTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidVerifyToken
		}
		return err
	}

	now := s.now()
	if user.VerifyTokenExpiresAt == nil || now.After(*user.VerifyTokenExpiresAt) {
		return ErrInvalidVerifyToken
	}

	return s.Store.Users().MarkVerified(ctx, user.ID, now)
}

// Login checks the password for a verified account and, when it matches,
// issues a one-time code to the account's email. The caller completes the
// login via VerifyMFA.
func (s *AuthService) Login(ctx context.Context, email, password string) error {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			// A failed password login is still a login attempt. Best effort,
			// the credential verdict stands either way.
			if terr := s.Store.Users().TouchLastLoginAttempt(ctx, user.ID, s.now()); terr != nil {
				slogx.FromContext(ctx).Error("failed to record login attempt",
					"user_id", user.ID, "error", terr)
			}
			return ErrInvalidCredentials
		}
		return err
	}

	if !user.IsVerified() {
		return ErrEmailNotVerified
	}

	return s.MFA.Issue(ctx, user)
}

// VerifyMFA completes a login by redeeming the emailed one-time code. On
// success it creates a server-side session and returns a signed token bound
// to it.
func (s *AuthService) VerifyMFA(ctx context.Context, email, code string) (string, domain.Session, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.Session{}, ErrUserNotFound
		}
		return "", domain.Session{}, err
	}

	if err := s.MFA.Verify(ctx, user, code); err != nil {
		return "", domain.Session{}, err
	}

	now := s.now()
	session := domain.Session{
		ID:         idx.New().String(),
		UserID:     user.ID,
		LastSeenAt: now,
		ExpiresAt:  now.Add(s.sessionTTL()),
	}

	if err := s.Store.Sessions().CreateSession(ctx, session); err != nil {
		return "", domain.Session{}, fmt.Errorf("failed to create session: %w", err)
	}

	claims := jwtx.NewSessionClaims(
		user.ID, session.ID, user.Email,
		[]string{"pwd", "otp"},
		s.sessionTTL(), s.Issuer, now,
	)

	token, err := s.Keypair.Sign(claims)
	if err != nil {
		return "", domain.Session{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	slogx.FromContext(ctx).Info("login completed",
		"user_id", user.ID, "session_id", session.ID)

	return token, session, nil
}

// Authenticate validates a bearer token and its backing session. Sessions
// idle for longer than the idle timeout, or past their absolute expiry, are
// deleted and rejected. A passing session has its last-seen time bumped.
func (s *AuthService) Authenticate(ctx context.Context, tokenStr string) (*jwtx.Claims, domain.Session, error) {
	claims, err := s.Verifier.Verify(tokenStr)
	if err != nil {
		return nil, domain.Session{}, ErrInvalidSession
	}

	session, err := s.Store.Sessions().GetSessionByID(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.Session{}, ErrInvalidSession
		}
		return nil, domain.Session{}, err
	}

	now := s.now()
	if now.After(session.ExpiresAt) || now.Sub(session.LastSeenAt) > s.idleTimeout() {
		// Best effort, housekeeping sweeps anything missed here.
		_ = s.Store.Sessions().DeleteSession(ctx, session.ID)
		return nil, domain.Session{}, ErrInvalidSession
	}

	if err := s.Store.Sessions().TouchSession(ctx, session.ID, now); err != nil {
		return nil, domain.Session{}, err
	}
	session.LastSeenAt = now

	return claims, session, nil
}

// Logout removes the session row, immediately invalidating its token.
// Logging out an already-removed session succeeds.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.Store.Sessions().DeleteSession(ctx, sessionID)
}
