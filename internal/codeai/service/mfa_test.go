package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerifyMFA(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("unknown email reports user not found", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		_, _, err := env.Auth.VerifyMFA(ctx, "ghost@example.com", "123456")
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("wrong code counts as a failed attempt", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.registerVerified(t, "wrongcode@example.com", "password123")

		code := env.loginForCode(t, "wrongcode@example.com", "password123")
		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		_, _, err := env.Auth.VerifyMFA(ctx, "wrongcode@example.com", wrong)
		require.ErrorIs(t, err, ErrInvalidMFACode)

		user, err2 := env.Store.Users().GetUserByEmail(ctx, "wrongcode@example.com")
		require.NoError(t, err2)
		require.Equal(t, 1, user.MFAAttempts)

		// The real code still works and resets the counter.
		_, _, err = env.Auth.VerifyMFA(ctx, "wrongcode@example.com", code)
		require.NoError(t, err)

		user, err2 = env.Store.Users().GetUserByEmail(ctx, "wrongcode@example.com")
		require.NoError(t, err2)
		require.Zero(t, user.MFAAttempts)
		require.Nil(t, user.MFACodeHash)
	})

	t.Run("code cannot be redeemed twice", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.registerVerified(t, "replay@example.com", "password123")

		code := env.loginForCode(t, "replay@example.com", "password123")

		_, _, err := env.Auth.VerifyMFA(ctx, "replay@example.com", code)
		require.NoError(t, err)

		_, _, err = env.Auth.VerifyMFA(ctx, "replay@example.com", code)
		require.ErrorIs(t, err, ErrInvalidMFACode)
	})

	t.Run("expired code rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.registerVerified(t, "expired@example.com", "password123")

		code := env.loginForCode(t, "expired@example.com", "password123")

		env.Clock.Advance(11 * time.Minute)
		_, _, err := env.Auth.VerifyMFA(ctx, "expired@example.com", code)
		require.ErrorIs(t, err, ErrInvalidMFACode)
	})

	t.Run("submissions without a pending code do not count as attempts", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.registerVerified(t, "nocode@example.com", "password123")

		// No code has been issued. A third party hammering the endpoint with
		// guesses must not be able to lock the owner out of password login.
		for i := 0; i < 3; i++ {
			_, _, err := env.Auth.VerifyMFA(ctx, "nocode@example.com", "123456")
			require.ErrorIs(t, err, ErrInvalidMFACode)
		}

		user, err := env.Store.Users().GetUserByEmail(ctx, "nocode@example.com")
		require.NoError(t, err)
		require.Zero(t, user.MFAAttempts)

		require.NoError(t, env.Auth.Login(ctx, "nocode@example.com", "password123"))
	})

	t.Run("fresh login invalidates the previous code", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.registerVerified(t, "reissue@example.com", "password123")

		first := env.loginForCode(t, "reissue@example.com", "password123")
		second := env.loginForCode(t, "reissue@example.com", "password123")

		if first != second {
			_, _, err := env.Auth.VerifyMFA(ctx, "reissue@example.com", first)
			require.ErrorIs(t, err, ErrInvalidMFACode)
		}

		_, _, err := env.Auth.VerifyMFA(ctx, "reissue@example.com", second)
		require.NoError(t, err)
	})
}

func TestMFALockout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	failTimes := func(t *testing.T, env *testEnv, email, code string, n int) {
		t.Helper()
		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}
		for i := 0; i < n; i++ {
			_, _, err := env.Auth.VerifyMFA(ctx, email, wrong)
			require.Error(t, err)
		}
	}

	t.Run("third failure locks the account", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.registerVerified(t, "lock@example.com", "password123")

		code := env.loginForCode(t, "lock@example.com", "password123")
		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		// Each wrong submission reports an invalid code, the third included.
		for i := 0; i < 3; i++ {
			_, _, err := env.Auth.VerifyMFA(ctx, "lock@example.com", wrong)
			require.ErrorIs(t, err, ErrInvalidMFACode)

			user, err2 := env.Store.Users().GetUserByEmail(ctx, "lock@example.com")
			require.NoError(t, err2)
			require.Equal(t, i+1, user.MFAAttempts)
		}

		// The budget is spent; even the correct code is refused now.
		_, _, err := env.Auth.VerifyMFA(ctx, "lock@example.com", code)
		require.ErrorIs(t, err, ErrTooManyMFAAttempts)

		// Password login is refused too.
		err = env.Auth.Login(ctx, "lock@example.com", "password123")
		require.ErrorIs(t, err, ErrAccountLocked)
	})

	t.Run("lockout expires after fifteen minutes", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.registerVerified(t, "unlock@example.com", "password123")

		code := env.loginForCode(t, "unlock@example.com", "password123")
		failTimes(t, env, "unlock@example.com", code, 3)

		// Still locked at fourteen minutes.
		env.Clock.Advance(14 * time.Minute)
		require.ErrorIs(t,
			env.Auth.Login(ctx, "unlock@example.com", "password123"),
			ErrAccountLocked)

		// Unlocked once the window has fully elapsed.
		env.Clock.Advance(1*time.Minute + time.Second)
		fresh := env.loginForCode(t, "unlock@example.com", "password123")

		_, _, err := env.Auth.VerifyMFA(ctx, "unlock@example.com", fresh)
		require.NoError(t, err)
	})

	t.Run("failed attempt during lockout does not extend it silently", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.registerVerified(t, "extend@example.com", "password123")

		code := env.loginForCode(t, "extend@example.com", "password123")
		failTimes(t, env, "extend@example.com", code, 3)

		// Attempts while locked are rejected up front without incrementing.
		env.Clock.Advance(10 * time.Minute)
		failTimes(t, env, "extend@example.com", code, 2)

		user, err := env.Store.Users().GetUserByEmail(ctx, "extend@example.com")
		require.NoError(t, err)
		require.Equal(t, 3, user.MFAAttempts)

		// Lockout still ends on the original schedule.
		env.Clock.Advance(5*time.Minute + time.Second)
		require.NoError(t, env.Auth.Login(ctx, "extend@example.com", "password123"))
	})
}
