package service

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/codeai/internal/codeai/store"
	"github.com/aussiebroadwan/codeai/internal/codeai/store/drivers/sqlite"
	"github.com/aussiebroadwan/codeai/pkg/cryptox"
	"github.com/aussiebroadwan/codeai/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "codeai-service-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now().UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type capturedMail struct {
	To      string
	Subject string
	Body    string
}

// captureMailer records outbound mail instead of sending it.
type captureMailer struct {
	mu   sync.Mutex
	sent []capturedMail
}

func (m *captureMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, capturedMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *captureMailer) last(t *testing.T) capturedMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "expected at least one mail to have been sent")
	return m.sent[len(m.sent)-1]
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

var (
	codePattern  = regexp.MustCompile(`\b\d{6}\b`)
	tokenPattern = regexp.MustCompile(`/verify/([A-Za-z0-9_-]+)`)
)

func (m *captureMailer) lastCode(t *testing.T) string {
	t.Helper()
	code := codePattern.FindString(m.last(t).Body)
	require.NotEmpty(t, code, "expected a 6-digit code in the last mail")
	return code
}

func (m *captureMailer) lastVerifyToken(t *testing.T) string {
	t.Helper()
	match := tokenPattern.FindStringSubmatch(m.last(t).Body)
	require.Len(t, match, 2, "expected a verification link in the last mail")
	return match[1]
}

type testEnv struct {
	Store  store.Store
	Auth   *AuthService
	Mailer *captureMailer
	Clock  *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "codeai.db"))
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })

	keypair, err := jwtx.NewEphemeralKeypair("test-key")
	require.NoError(t, err)

	clock := newFakeClock()
	mailer := &captureMailer{}

	mfa := &MFAService{
		Store:  s,
		Mailer: mailer,
		Now:    clock.Now,
	}

	auth := &AuthService{
		Store:    s,
		Keypair:  keypair,
		Verifier: jwtx.NewVerifier(keypair, "codeai-test"),
		Mailer:   mailer,
		MFA:      mfa,
		Issuer:   "codeai-test",
		BaseURL:  "http://localhost:8080",
		Now:      clock.Now,
	}

	return &testEnv{Store: s, Auth: auth, Mailer: mailer, Clock: clock}
}

// registerVerified registers a user and completes email verification.
func (e *testEnv) registerVerified(t *testing.T, email, password string) {
	t.Helper()
	ctx := context.Background()

	_, err := e.Auth.Register(ctx, email, password)
	require.NoError(t, err)
	require.NoError(t, e.Auth.VerifyEmail(ctx, e.Mailer.lastVerifyToken(t)))
}

// loginForCode performs a password login and returns the emailed code.
func (e *testEnv) loginForCode(t *testing.T, email, password string) string {
	t.Helper()
	require.NoError(t, e.Auth.Login(context.Background(), email, password))
	return e.Mailer.lastCode(t)
}
