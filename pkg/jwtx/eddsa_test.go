package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundtrip(t *testing.T) {
	key, err := NewEphemeralKeypair("codeai-key-001")
	require.NoError(t, err)
	require.True(t, key.IsReady())

	claims := NewSessionClaims(
		"user-123", "sess-456", "test@example.com",
		[]string{"pwd", "otp"},
		time.Hour, "codeai", time.Now().UTC(),
	)

	token, err := key.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	v := NewVerifier(key, "codeai")
	got, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", got.Subject)
	require.Equal(t, "sess-456", got.SID)
	require.Equal(t, "test@example.com", got.Email)
	require.Equal(t, []string{"pwd", "otp"}, got.AMR)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	key1, err := NewEphemeralKeypair("key-1")
	require.NoError(t, err)
	key2, err := NewEphemeralKeypair("key-1") // same kid, different key material
	require.NoError(t, err)

	claims := NewSessionClaims("u", "s", "e@x.com", nil, time.Hour, "codeai", time.Now().UTC())
	token, err := key1.Sign(claims)
	require.NoError(t, err)

	_, err = NewVerifier(key2, "codeai").Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	key, err := NewEphemeralKeypair("key-1")
	require.NoError(t, err)

	claims := NewSessionClaims("u", "s", "e@x.com", nil, time.Hour, "someone-else", time.Now().UTC())
	token, err := key.Sign(claims)
	require.NoError(t, err)

	_, err = NewVerifier(key, "codeai").Verify(token)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestVerifyRejectsExpired(t *testing.T) {
	key, err := NewEphemeralKeypair("key-1")
	require.NoError(t, err)

	claims := NewSessionClaims("u", "s", "e@x.com", nil, time.Minute, "codeai",
		time.Now().UTC().Add(-time.Hour))
	token, err := key.Sign(claims)
	require.NoError(t, err)

	_, err = NewVerifier(key, "codeai").Verify(token)
	require.Error(t, err)
}
