package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/codeai/internal/codeai/domain"
)

const userColumns = `id, email, password_hash, verified_at,
	verify_token_hash, verify_token_expires_at,
	mfa_code_hash, mfa_code_expires_at, mfa_attempts, last_login_attempt,
	created_at, updated_at`

type usersRepo struct {
	q querier
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (
			id, email, password_hash, verified_at,
			verify_token_hash, verify_token_expires_at,
			mfa_code_hash, mfa_code_expires_at, mfa_attempts, last_login_attempt,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Email,
		u.PasswordHash,
		mapOptionalTime(u.VerifiedAt),
		mapOptionalString(u.VerifyTokenHash),
		mapOptionalTime(u.VerifyTokenExpiresAt),
		mapOptionalString(u.MFACodeHash),
		mapOptionalTime(u.MFACodeExpiresAt),
		u.MFAAttempts,
		mapOptionalTime(u.LastLoginAttempt),
		now,
		now,
	)
	return mapConstraint(err)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByVerifyTokenHash(ctx context.Context, hash string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE verify_token_hash = ?`, hash)

	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) MarkVerified(ctx context.Context, userID string, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE users SET
			verified_at = ?,
			verify_token_hash = NULL,
			verify_token_expires_at = NULL,
			updated_at = ?
		WHERE id = ?`,
		at, time.Now().UTC(), userID)
	return err
}

func (r *usersRepo) UpdateVerifyToken(ctx context.Context, userID, hash string, expiresAt time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE users SET
			verify_token_hash = ?,
			verify_token_expires_at = ?,
			updated_at = ?
		WHERE id = ?`,
		hash, expiresAt, time.Now().UTC(), userID)
	return err
}

func (r *usersRepo) SetMFACode(ctx context.Context, userID, codeHash string, expiresAt, attemptAt time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE users SET
			mfa_code_hash = ?,
			mfa_code_expires_at = ?,
			last_login_attempt = ?,
			updated_at = ?
		WHERE id = ?`,
		codeHash, expiresAt, attemptAt, time.Now().UTC(), userID)
	return err
}

func (r *usersRepo) IncrementMFAAttempts(ctx context.Context, userID string, attemptAt time.Time) (int, error) {
	row := r.q.QueryRowContext(ctx, `
		UPDATE users SET
			mfa_attempts = mfa_attempts + 1,
			last_login_attempt = ?,
			updated_at = ?
		WHERE id = ?
		RETURNING mfa_attempts`,
		attemptAt, time.Now().UTC(), userID)

	var attempts int
	if err := row.Scan(&attempts); err != nil {
		return 0, mapNotFound(err)
	}
	return attempts, nil
}

func (r *usersRepo) ClearMFACode(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE users SET
			mfa_code_hash = NULL,
			mfa_code_expires_at = NULL,
			mfa_attempts = 0,
			updated_at = ?
		WHERE id = ?`,
		time.Now().UTC(), userID)
	return err
}

func (r *usersRepo) TouchLastLoginAttempt(ctx context.Context, userID string, attemptAt time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE users SET last_login_attempt = ?, updated_at = ? WHERE id = ?`,
		attemptAt, time.Now().UTC(), userID)
	return err
}

func (r *usersRepo) ResetMFAAttempts(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE users SET mfa_attempts = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), userID)
	return err
}

func (r *usersRepo) ClearExpiredVerifyTokens(ctx context.Context, now time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE users SET
			verify_token_hash = NULL,
			verify_token_expires_at = NULL
		WHERE verify_token_hash IS NOT NULL AND verify_token_expires_at < ?`,
		now)
	return err
}

func (r *usersRepo) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
