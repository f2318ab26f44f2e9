package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/aussiebroadwan/codeai/internal/codeai/llm"
	"github.com/aussiebroadwan/codeai/internal/codeai/service"
	"github.com/aussiebroadwan/codeai/internal/codeai/store/drivers/sqlite"
	"github.com/aussiebroadwan/codeai/pkg/cryptox"
	"github.com/aussiebroadwan/codeai/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "codeai-http-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type capturedMail struct {
	To      string
	Subject string
	Body    string
}

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

var (
	codePattern  = regexp.MustCompile(`\b\d{6}\b`)
	tokenPattern = regexp.MustCompile(`/verify/([A-Za-z0-9_-]+)`)
)

func (m *captureMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	code := codePattern.FindString(m.sent[len(m.sent)-1].Body)
	require.NotEmpty(t, code)
	return code
}

func (m *captureMailer) lastVerifyToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	match := tokenPattern.FindStringSubmatch(m.sent[len(m.sent)-1].Body)
	require.Len(t, match, 2)
	return match[1]
}

type testServer struct {
	Router *Router
	Mailer *captureMailer
}

// newTestServer wires a full router against a throwaway database and a fake
// model server that echoes a canned response.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "codeai.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/", "/api/show":
			w.Write([]byte(`{}`))
		case "/api/generate":
			json.NewEncoder(w).Encode(map[string]any{
				"model": "test", "response": "generated text", "done": true,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(model.Close)

	keypair, err := jwtx.NewEphemeralKeypair("test-key")
	require.NoError(t, err)

	mailer := &captureMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mfa := &service.MFAService{Store: st, Mailer: mailer}
	auth := &service.AuthService{
		Store:    st,
		Keypair:  keypair,
		Verifier: jwtx.NewVerifier(keypair, "codeai-test"),
		Mailer:   mailer,
		MFA:      mfa,
		Issuer:   "codeai-test",
		BaseURL:  "http://localhost:8080",
	}
	chat := &service.ChatService{Client: llm.NewClient(llm.Config{BaseURL: model.URL})}

	router := NewRouter(keypair, "test", st, logger)
	router.AuthService = auth
	router.ChatService = chat
	router.ApplyRoutes()

	return &testServer{Router: router, Mailer: mailer}
}

// do issues a request against the router and decodes the JSON response body.
func (ts *testServer) do(t *testing.T, method, path, body, bearer string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	ts.Router.ServeHTTP(rec, req)

	decoded := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	return rec, decoded
}

// loginFlow registers, verifies, and logs a user all the way in, returning
// the session token.
func (ts *testServer) loginFlow(t *testing.T, email, password string) string {
	t.Helper()

	rec, _ := ts.do(t, http.MethodPost, "/api/register",
		`{"email":"`+email+`","password":"`+password+`"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = ts.do(t, http.MethodGet, "/verify/"+ts.Mailer.lastVerifyToken(t), "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = ts.do(t, http.MethodPost, "/api/login",
		`{"email":"`+email+`","password":"`+password+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := ts.do(t, http.MethodPost, "/api/verify-mfa",
		`{"email":"`+email+`","mfa_code":"`+ts.Mailer.lastCode(t)+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}
