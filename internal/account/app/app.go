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

	httpapi "github.com/tidehaven/accountd/internal/account/http"
	"github.com/tidehaven/accountd/internal/account/mail"
	"github.com/tidehaven/accountd/internal/account/service"
	"github.com/tidehaven/accountd/internal/account/storage"
	"github.com/tidehaven/accountd/internal/account/store"
	"github.com/tidehaven/accountd/internal/account/store/drivers/sqlite"
	"github.com/tidehaven/accountd/pkg/cryptox"
	"github.com/tidehaven/accountd/pkg/slogx"
	"github.com/tidehaven/accountd/pkg/tokenx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the account service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	mailer mail.Mailer
	files  storage.ObjectStore

	// Services
	authService *service.AuthService
	userService *service.UserService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "account-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetWorkFactor(cfg.HashWorkFactor)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()

	ctx := context.Background()
	if err := app.initMail(); err != nil {
		return nil, err
	}
	if err := app.initStorage(ctx); err != nil {
		return nil, err
	}
	if err := app.bootstrapSuperuser(ctx); err != nil {
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("account service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

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
	app.logger.Info("shutting down account service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("account service stopped")
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

// initServices initializes all business logic services
func (app *Application) initServices() {
	secret := []byte(app.cfg.SigningSecret)

	app.authService = &service.AuthService{
		Store:  app.db,
		Bearer: tokenx.NewCodec(secret, tokenx.PurposeAccess, app.cfg.BearerTTL),
		Reset:  tokenx.NewCodec(secret, tokenx.PurposeReset, app.cfg.ResetTTL),
	}

	app.userService = &service.UserService{Store: app.db}
}

func (app *Application) initMail() error {
	if !app.cfg.EmailsEnabled {
		app.mailer = mail.LogMailer{}
		app.logger.Info("email delivery disabled, messages will be logged")
		return nil
	}

	app.mailer = &mail.SMTPMailer{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUsername,
		Password: app.cfg.SMTPPassword,
		From:     app.cfg.SMTPFrom,
	}
	app.logger.Info("email delivery enabled", "host", app.cfg.SMTPHost)
	return nil
}

func (app *Application) initStorage(ctx context.Context) error {
	files, err := storage.New(ctx, storage.Config{
		Provider:     app.cfg.StorageProvider,
		Bucket:       app.cfg.S3Bucket,
		Region:       app.cfg.S3Region,
		Endpoint:     app.cfg.S3Endpoint,
		AccessKey:    app.cfg.S3AccessKey,
		SecretKey:    app.cfg.S3SecretKey,
		UsePathStyle: app.cfg.S3UsePathStyle,
	})
	switch {
	case errors.Is(err, storage.ErrDisabled):
		app.logger.Info("object storage disabled")
		return nil
	case err != nil:
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	app.files = files
	app.logger.Info("object storage enabled",
		"provider", app.cfg.StorageProvider, "bucket", app.cfg.S3Bucket)
	return nil
}

// bootstrapSuperuser guarantees the configured first superuser exists. It
// runs on every start and is a no-op once the account is present.
func (app *Application) bootstrapSuperuser(ctx context.Context) error {
	if app.cfg.FirstSuperuser == "" {
		return nil
	}

	_, err := app.userService.GetByEmail(ctx, app.cfg.FirstSuperuser)
	if err == nil {
		return nil
	}
	if !errors.Is(err, service.ErrUserNotFound) {
		return fmt.Errorf("failed to look up first superuser: %w", err)
	}

	_, err = app.userService.Create(ctx, service.CreateUserInput{
		Email:       app.cfg.FirstSuperuser,
		FullName:    "Admin",
		Password:    app.cfg.FirstSuperuserPassword,
		IsActive:    true,
		IsSuperuser: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create first superuser: %w", err)
	}

	app.logger.Info("first superuser created", "email", app.cfg.FirstSuperuser)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	// Wire services to router
	router.AuthService = app.authService
	router.UserService = app.userService
	router.Mailer = app.mailer
	router.Files = app.files
	router.FrontendURL = app.cfg.FrontendURL
	router.PresignTTL = app.cfg.PresignTTL
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
