package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/codeai/internal/codeai/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction. If fn returns an
	// error, the transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists if the email is already registered.
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByEmail performs a case-sensitive exact match.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByVerifyTokenHash looks up the owner of an outstanding
	// email-verification token by its fingerprint.
	GetUserByVerifyTokenHash(ctx context.Context, hash string) (domain.User, error)

	// MarkVerified sets verified_at and consumes the verification token.
	MarkVerified(ctx context.Context, userID string, at time.Time) error

	// UpdateVerifyToken replaces the outstanding verification token.
	UpdateVerifyToken(ctx context.Context, userID, hash string, expiresAt time.Time) error

	// SetMFACode stores a freshly issued one-time code fingerprint with its
	// expiry and stamps last_login_attempt, all in a single statement so no
	// partial state is ever observable. Any prior unconsumed code is
	// overwritten and therefore invalidated.
	SetMFACode(ctx context.Context, userID, codeHash string, expiresAt, attemptAt time.Time) error

	// IncrementMFAAttempts atomically bumps the failed-attempt counter and
	// last_login_attempt, returning the new count. Concurrent verifications
	// for the same user must not interleave partial updates.
	IncrementMFAAttempts(ctx context.Context, userID string, attemptAt time.Time) (int, error)

	// ClearMFACode consumes the current code: clears the fingerprint and
	// expiry and resets the attempt counter to zero.
	ClearMFACode(ctx context.Context, userID string) error

	// ResetMFAAttempts zeroes the attempt counter (lockout expiry).
	ResetMFAAttempts(ctx context.Context, userID string) error

	// TouchLastLoginAttempt stamps last_login_attempt without touching the
	// attempt counter (failed password logins).
	TouchLastLoginAttempt(ctx context.Context, userID string, attemptAt time.Time) error

	// ClearExpiredVerifyTokens drops verification tokens past their expiry
	// (housekeeping).
	ClearExpiredVerifyTokens(ctx context.Context, now time.Time) error

	// CountUsers returns the total number of users.
	CountUsers(ctx context.Context) (int64, error)
}

type Sessions interface {
	// CreateSession stores a new authenticated session.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByID returns a session by id.
	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	// TouchSession bumps last_seen_at for idle-expiry tracking.
	TouchSession(ctx context.Context, id string, at time.Time) error

	// DeleteSession removes a session (logout). Deleting a missing session
	// is not an error, logout is idempotent.
	DeleteSession(ctx context.Context, id string) error

	// DeleteUserSessions removes all sessions for a user.
	DeleteUserSessions(ctx context.Context, userID string) error

	// DeleteExpiredSessions removes sessions past their absolute cap or idle
	// for longer than the idle timeout (housekeeping).
	DeleteExpiredSessions(ctx context.Context, now, idleBefore time.Time) error
}
