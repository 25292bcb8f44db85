package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/wealthstudio/studio-auth/internal/auth/http"
	"github.com/wealthstudio/studio-auth/internal/auth/service"
	"github.com/wealthstudio/studio-auth/internal/auth/store"
	"github.com/wealthstudio/studio-auth/internal/auth/store/drivers/postgres"
	"github.com/wealthstudio/studio-auth/internal/auth/store/drivers/sqlite"
	"github.com/wealthstudio/studio-auth/pkg/cryptox"
	"github.com/wealthstudio/studio-auth/pkg/httpx"
	"github.com/wealthstudio/studio-auth/pkg/jwtx"
	"github.com/wealthstudio/studio-auth/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X ...app.BuildVersion=...".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	codec  *jwtx.HS256Codec
	hasher *cryptox.PasswordHasher

	// Services
	auditService        *service.AuditService
	inviteService       *service.InviteService
	userService         *service.UserService
	sessionService      *service.SessionService
	authService         *service.AuthService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "studio-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}
	slog.SetDefault(app.logger)

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewPasswordHasher(cryptox.Params{
		MemoryKiB:  cfg.Argon2MemoryKiB,
		Iterations: cfg.Argon2Iterations,
	}, pepper)

	app.codec, err = InitSessionCodec(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session codec: %w", err)
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	app.initServices()
	if err := app.initHTTP(); err != nil {
		return nil, err
	}

	return app, nil
}

// Handler exposes the routed HTTP handler, mainly for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"driver", app.cfg.DatabaseDriver,
		"audit_mode", app.auditService.Mode,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.db.Close()
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
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)

	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL, postgres.Options{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		})
	default:
		db, err = sqlite.NewStore(app.cfg.DatabaseFile)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	// Validated by Config.Validate
	mode, _ := service.ParseAuditMode(app.cfg.AuditMode)

	app.auditService = &service.AuditService{Store: app.db, Mode: mode}
	app.inviteService = &service.InviteService{Store: app.db}
	app.userService = &service.UserService{Store: app.db, Hasher: app.hasher}
	app.sessionService = &service.SessionService{
		Store: app.db,
		Codec: app.codec,
		TTL:   app.cfg.SessionTTL,
	}

	app.authService = &service.AuthService{
		Store:    app.db,
		Invites:  app.inviteService,
		Users:    app.userService,
		Sessions: app.sessionService,
		Audit:    app.auditService,
	}
	app.bootstrapService = &service.BootstrapService{
		Store:    app.db,
		Token:    app.cfg.BootstrapToken,
		Users:    app.userService,
		Invites:  app.inviteService,
		Sessions: app.sessionService,
		Audit:    app.auditService,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.sessionService,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	if app.cfg.BootstrapToken == "" {
		app.logger.Info("bootstrap disabled (BOOTSTRAP_TOKEN not set)")
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() error {
	proxies, err := httpx.ParseTrustedProxies(app.cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}

	router := httpapi.NewRouter(BuildVersion, app.db, app.logger, httpapi.Options{
		CORSOrigins:    httpx.ParseOrigins(app.cfg.CORSAllowedOrigins),
		TrustedProxies: proxies,
		RequestTimeout: app.cfg.RequestTimeout,
		RateLimits:     app.cfg.RateLimits,
	})

	router.AuthService = app.authService
	router.BootstrapService = app.bootstrapService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
