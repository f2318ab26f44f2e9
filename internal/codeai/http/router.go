package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/codeai/internal/codeai/service"
	"github.com/aussiebroadwan/codeai/internal/codeai/store"
	"github.com/aussiebroadwan/codeai/pkg/httpx"
	"github.com/aussiebroadwan/codeai/pkg/jwtx"
	"github.com/aussiebroadwan/codeai/pkg/slogx"

	_ "github.com/aussiebroadwan/codeai/api/codeai" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keypair      *jwtx.Keypair
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store       store.Store
	AuthService *service.AuthService
	ChatService *service.ChatService
}

func NewRouter(
	keypair *jwtx.Keypair,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keypair:      keypair,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerChat()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			CodeAI API
//	@version		0.1.0
//	@description	Authentication and text-generation service. Accounts register with
//	@description	an email and password, verify the email via a one-time link, and log
//	@description	in with password plus an emailed one-time code. Authenticated
//	@description	sessions can call the chat endpoint backed by a local code model.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	registerHandler := &RegisterHandler{AuthService: r.AuthService}
	loginHandler := &LoginHandler{AuthService: r.AuthService}
	verifyMFAHandler := &VerifyMFAHandler{AuthService: r.AuthService}
	verifyEmailHandler := &VerifyEmailHandler{AuthService: r.AuthService}
	logoutHandler := &LogoutHandler{AuthService: r.AuthService}

	// Each authentication operation drains its own fixed-window attempt
	// budget, keyed by client IP. Exhausting login attempts does not block
	// registration and vice versa.
	r.Mux.Handle("POST /api/register",
		httpx.Chain(registerHandler,
			httpx.AttemptLimitMiddleware("register", httpx.AuthAttemptLimit, httpx.IPKeyExtractor),
		),
	)

	r.Mux.Handle("POST /api/login",
		httpx.Chain(loginHandler,
			httpx.AttemptLimitMiddleware("login", httpx.AuthAttemptLimit, httpx.IPKeyExtractor),
		),
	)

	r.Mux.Handle("POST /api/verify-mfa",
		httpx.Chain(verifyMFAHandler,
			httpx.AttemptLimitMiddleware("verify-mfa", httpx.AuthAttemptLimit, httpx.IPKeyExtractor),
		),
	)

	// GET /verify/{token} - clicked from the verification email
	r.Mux.Handle("GET /verify/{token}",
		httpx.Chain(verifyEmailHandler,
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	// POST /api/logout - requires a valid session
	r.Mux.Handle("POST /api/logout",
		httpx.Chain(logoutHandler,
			AuthnMiddleware(r.AuthService),
		),
	)
}

func (r *Router) registerChat() {
	h := &ChatHandler{ChatService: r.ChatService}

	// Generation is expensive, so the token-bucket limit is keyed per user.
	secured := httpx.Chain(h,
		AuthnMiddleware(r.AuthService),
		httpx.RateLimitByUser(httpx.ChatLimit),
	)

	r.Mux.Handle("POST /api/chat", secured)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keypair, r.ChatService),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
