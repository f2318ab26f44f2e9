package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("creates an account", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		rec, body := ts.do(t, http.MethodPost, "/api/register",
			`{"email":"alice@example.com","password":"password123"}`, "")
		require.Equal(t, http.StatusCreated, rec.Code)
		require.Contains(t, body["message"], "verification link")
	})

	t.Run("duplicate email is a 400", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		rec, _ := ts.do(t, http.MethodPost, "/api/register",
			`{"email":"dup@example.com","password":"password123"}`, "")
		require.Equal(t, http.StatusCreated, rec.Code)

		rec, body := ts.do(t, http.MethodPost, "/api/register",
			`{"email":"dup@example.com","password":"password123"}`, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "duplicate_email", body["error"])
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		rec, body := ts.do(t, http.MethodPost, "/api/register", `{not json`, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid_request", body["error"])
	})

	t.Run("sixth attempt in the window is rate limited", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		for i := 0; i < 5; i++ {
			rec, _ := ts.do(t, http.MethodPost, "/api/register", `{not json`, "")
			require.Equal(t, http.StatusBadRequest, rec.Code)
		}

		rec, body := ts.do(t, http.MethodPost, "/api/register", `{not json`, "")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "rate_limited", body["error"])
	})
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("wrong password is a 401", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.loginFlow(t, "wrong@example.com", "password123")

		rec, body := ts.do(t, http.MethodPost, "/api/login",
			`{"email":"wrong@example.com","password":"nope nope nope"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_credentials", body["error"])
	})

	t.Run("unverified account is a 401", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		rec, _ := ts.do(t, http.MethodPost, "/api/register",
			`{"email":"new@example.com","password":"password123"}`, "")
		require.Equal(t, http.StatusCreated, rec.Code)

		rec, body := ts.do(t, http.MethodPost, "/api/login",
			`{"email":"new@example.com","password":"password123"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "email_not_verified", body["error"])
	})

	t.Run("login attempts have their own budget", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		// Drain the login budget with bad attempts.
		for i := 0; i < 5; i++ {
			rec, _ := ts.do(t, http.MethodPost, "/api/login",
				`{"email":"ghost@example.com","password":"password123"}`, "")
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		}
		rec, _ := ts.do(t, http.MethodPost, "/api/login",
			`{"email":"ghost@example.com","password":"password123"}`, "")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)

		// Registration still works from the same client.
		rec, _ = ts.do(t, http.MethodPost, "/api/register",
			`{"email":"still@example.com","password":"password123"}`, "")
		require.Equal(t, http.StatusCreated, rec.Code)
	})
}

func TestVerifyMFAEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("unknown email is a 404", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		rec, body := ts.do(t, http.MethodPost, "/api/verify-mfa",
			`{"email":"ghost@example.com","mfa_code":"123456"}`, "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "user_not_found", body["error"])
	})

	t.Run("wrong code is a 401", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		rec, _ := ts.do(t, http.MethodPost, "/api/register",
			`{"email":"code@example.com","password":"password123"}`, "")
		require.Equal(t, http.StatusCreated, rec.Code)
		rec, _ = ts.do(t, http.MethodGet, "/verify/"+ts.Mailer.lastVerifyToken(t), "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		rec, _ = ts.do(t, http.MethodPost, "/api/login",
			`{"email":"code@example.com","password":"password123"}`, "")
		require.Equal(t, http.StatusOK, rec.Code)

		wrong := "000000"
		if ts.Mailer.lastCode(t) == wrong {
			wrong = "000001"
		}
		rec, body := ts.do(t, http.MethodPost, "/api/verify-mfa",
			`{"email":"code@example.com","mfa_code":"`+wrong+`"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_mfa_code", body["error"])
	})
}

func TestVerifyEmailEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec, body := ts.do(t, http.MethodGet, "/verify/bogus-token", "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_verify_token", body["error"])
}

func TestChatEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("requires a session", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		rec, body := ts.do(t, http.MethodPost, "/api/chat",
			`{"message":"hello"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_session", body["error"])
	})

	t.Run("generates for an authenticated session", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		token := ts.loginFlow(t, "chatter@example.com", "password123")

		rec, body := ts.do(t, http.MethodPost, "/api/chat",
			`{"message":"write a function"}`, token)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "generated text", body["response"])
	})

	t.Run("rejects garbage tokens", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		rec, _ := ts.do(t, http.MethodPost, "/api/chat",
			`{"message":"hello"}`, "not.a.token")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogoutEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token := ts.loginFlow(t, "logout@example.com", "password123")

	rec, _ := ts.do(t, http.MethodPost, "/api/logout", "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	// The token stops working immediately.
	rec, _ = ts.do(t, http.MethodPost, "/api/chat", `{"message":"hello"}`, token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// A second logout with the dead token is a 401, not an error.
	rec, _ = ts.do(t, http.MethodPost, "/api/logout", "", token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec, body := ts.do(t, http.MethodGet, "/livez", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body["status"])

	// Readiness is degraded until the model probe has run.
	rec, _ = ts.do(t, http.MethodGet, "/readyz", "", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, ts.Router.ChatService.CheckReadiness(context.Background()))

	rec, body = ts.do(t, http.MethodGet, "/readyz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body["status"])
}
