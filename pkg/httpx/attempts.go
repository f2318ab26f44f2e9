package httpx

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aussiebroadwan/codeai/pkg/slogx"
)

// ErrRateLimited is returned by AttemptLimiter when a key has exhausted its
// attempt budget for the current window.
var ErrRateLimited = errors.New("httpx: rate limited")

// AttemptLimitConfig defines fixed-window attempt counting parameters, used
// for authentication endpoints where the number of attempts matters, not the
// request rate.
type AttemptLimitConfig struct {
	// MaxAttempts is the number of attempts allowed per window.
	MaxAttempts int
	// Window is the counting window. The counter resets lazily once a full
	// window has elapsed since the first attempt, there is no background sweep.
	Window time.Duration
}

// AuthAttemptLimit is the default budget for register, login and verify-mfa.
// Each operation gets its own budget so exhausting one cannot block another.
// Override with: RATELIMIT_AUTH_ATTEMPTS, RATELIMIT_AUTH_WINDOW_SEC.
var AuthAttemptLimit = AttemptLimitConfig{
	MaxAttempts: 5,
	Window:      15 * time.Minute,
}

func init() {
	cfg := ParseRateLimitFromEnv("AUTH", RateLimitConfig{
		RequestsPerWindow: AuthAttemptLimit.MaxAttempts,
		Window:            AuthAttemptLimit.Window,
	})
	AuthAttemptLimit = AttemptLimitConfig{
		MaxAttempts: cfg.RequestsPerWindow,
		Window:      cfg.Window,
	}
}

type attemptWindow struct {
	count       int
	windowStart time.Time
}

// AttemptLimiter counts attempts per key within a fixed window. Windows reset
// lazily: once the elapsed time since window start exceeds the configured
// window length, the counter starts over. If the budget is exhausted the
// attempt is rejected without incrementing further.
type AttemptLimiter struct {
	cfg AttemptLimitConfig

	mu        sync.Mutex
	windows   map[string]*attemptWindow
	lastSweep time.Time

	// now is swappable for tests.
	now func() time.Time
}

// NewAttemptLimiter creates an AttemptLimiter with the given configuration.
func NewAttemptLimiter(cfg AttemptLimitConfig) *AttemptLimiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = AuthAttemptLimit.MaxAttempts
	}
	if cfg.Window <= 0 {
		cfg.Window = AuthAttemptLimit.Window
	}
	return &AttemptLimiter{
		cfg:     cfg,
		windows: make(map[string]*attemptWindow),
		now:     time.Now,
	}
}

// maybeSweep drops windows whose budget has fully lapsed. Runs at most once
// per window length and expects l.mu to be held. Prevents unbounded growth
// from ephemeral keys.
func (l *AttemptLimiter) maybeSweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.cfg.Window {
		return
	}
	l.lastSweep = now

	for key, w := range l.windows {
		if now.Sub(w.windowStart) > l.cfg.Window {
			delete(l.windows, key)
		}
	}
}

// CheckAndIncrement records an attempt for key. Returns ErrRateLimited when
// the key has already used its full budget in the current window.
func (l *AttemptLimiter) CheckAndIncrement(key string) error {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeSweep(now)

	w, ok := l.windows[key]
	if !ok {
		w = &attemptWindow{windowStart: now}
		l.windows[key] = w
	}

	// Lazy window reset.
	if now.Sub(w.windowStart) > l.cfg.Window {
		w.count = 0
		w.windowStart = now
	}

	if w.count >= l.cfg.MaxAttempts {
		return ErrRateLimited
	}

	w.count++
	return nil
}

// AttemptLimitMiddleware guards an endpoint with a fixed-window attempt
// budget. The operation name is part of the key, so register, login and
// verify-mfa each drain their own budget rather than a shared one.
func AttemptLimitMiddleware(op string, cfg AttemptLimitConfig, keyExtractor KeyExtractor) Middleware {
	limiter := NewAttemptLimiter(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := keyExtractor(r)
			if key == "" {
				log.Warn("attempt limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if err := limiter.CheckAndIncrement(op + ":" + key); err != nil {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.cfg.MaxAttempts))
				w.Header().Set("X-RateLimit-Window", limiter.cfg.Window.String())

				log.Warn("attempt limit exceeded",
					"op", op,
					"key", key,
					"endpoint", r.URL.Path,
				)

				WriteError(w, http.StatusTooManyRequests,
					"rate_limited", "Too many attempts. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
