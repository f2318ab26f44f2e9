package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/codeai/internal/codeai/http"
	"github.com/aussiebroadwan/codeai/internal/codeai/llm"
	"github.com/aussiebroadwan/codeai/internal/codeai/mail"
	"github.com/aussiebroadwan/codeai/internal/codeai/service"
	"github.com/aussiebroadwan/codeai/internal/codeai/store"
	"github.com/aussiebroadwan/codeai/internal/codeai/store/drivers/sqlite"
	"github.com/aussiebroadwan/codeai/pkg/cryptox"
	"github.com/aussiebroadwan/codeai/pkg/idx"
	"github.com/aussiebroadwan/codeai/pkg/jwtx"
	"github.com/aussiebroadwan/codeai/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the CodeAI service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	keypair *jwtx.Keypair
	mailer  mail.Mailer

	// Services
	authService         *service.AuthService
	chatService         *service.ChatService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "codeai",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	// Sessions are short-lived, so an ephemeral signing key per process is
	// fine. A restart logs everyone out.
	keypair, err := jwtx.NewEphemeralKeypair(idx.New().String())
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing keypair: %w", err)
	}
	app.keypair = keypair

	app.initMailer()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Probe the model server once at startup so /readyz reflects reality
	// immediately. The service keeps rechecking lazily on demand after that.
	probeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := app.chatService.CheckReadiness(probeCtx); err != nil {
		app.logger.Warn("model server not ready at startup", "error", err)
	}
	cancel()

	app.housekeepingService.Start()

	app.logger.Info("codeai service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down codeai service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("codeai service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initMailer picks SMTP delivery when configured, log-only delivery otherwise
func (app *Application) initMailer() {
	if app.cfg.SMTPHost == "" {
		app.logger.Warn("SMTP_HOST not set, outbound mail will be logged instead of sent")
		app.mailer = mail.NewLogMailer(app.logger)
		return
	}

	app.mailer = mail.NewSMTPMailer(mail.Config{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUsername,
		Password: app.cfg.SMTPPassword,
		From:     app.cfg.SMTPFrom,
	})
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	mfaService := &service.MFAService{
		Store:           app.db,
		Mailer:          app.mailer,
		CodeTTL:         app.cfg.MFACodeTTL,
		LockoutDuration: app.cfg.MFALockoutDuration,
	}

	app.authService = &service.AuthService{
		Store:          app.db,
		Keypair:        app.keypair,
		Verifier:       jwtx.NewVerifier(app.keypair, app.cfg.Issuer),
		Mailer:         app.mailer,
		MFA:            mfaService,
		Issuer:         app.cfg.Issuer,
		BaseURL:        app.cfg.BaseURL,
		SessionTTL:     app.cfg.SessionTTL,
		IdleTimeout:    app.cfg.SessionIdleTimeout,
		VerifyTokenTTL: app.cfg.VerifyTokenTTL,
	}

	app.chatService = &service.ChatService{
		Client: llm.NewClient(llm.Config{
			BaseURL:     app.cfg.ModelBaseURL,
			Model:       app.cfg.ModelName,
			Timeout:     app.cfg.ModelTimeout,
			MaxTokens:   app.cfg.ModelMaxTokens,
			Temperature: app.cfg.ModelTemperature,
		}),
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.SessionIdleTimeout,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keypair,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.AuthService = app.authService
	router.ChatService = app.chatService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
