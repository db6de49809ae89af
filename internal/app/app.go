package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invitehub/config"
	"invitehub/internal/adapters/auth"
	"invitehub/internal/adapters/email"
	httpdelivery "invitehub/internal/delivery/http"
	"invitehub/internal/delivery/http/controllers"
	"invitehub/internal/delivery/http/middleware"
	"invitehub/internal/domain"
	"invitehub/internal/repository/postgres"
	"invitehub/internal/services"
)

const shutdownGracePeriod = 10 * time.Second

// Application encapsulates the invitation service with all its dependencies.
type Application struct {
	cfg    *config.Config
	logger *slog.Logger

	db *sql.DB

	invitationService domain.InvitationService
	emailService      domain.EmailService
	membership        domain.MembershipAssigner
	audit             domain.AuditLogger
	sweeper           *services.ExpirySweeper

	server *http.Server
}

// New creates an Application instance with all dependencies initialized.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	app := &Application{cfg: cfg, logger: logger}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	if app.cfg.SweepInterval > 0 {
		app.sweeper.Start()
	}

	app.logger.Info("server starting", "port", app.cfg.Port, "env", app.cfg.Environment)

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
		app.logger.Info("shutdown signal received", "signal", sig.String())
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully stops the HTTP server, the expiry sweeper, and the
// database connection.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.cfg.SweepInterval > 0 {
		app.sweeper.Stop()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("server stopped")
	return nil
}

// initDatabase opens the connection pool and applies migrations.
func (app *Application) initDatabase() error {
	db, err := sql.Open("postgres", app.cfg.DBUrl)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	if err := postgres.ApplyMigrations(db); err != nil {
		_ = db.Close()
		return fmt.Errorf("apply migrations: %w", err)
	}
	app.db = db
	app.logger.Info("database migrations applied")
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() error {
	repo := postgres.NewInvitationRepository(app.db)
	app.invitationService = services.NewInvitationService(repo, services.InvitationConfig{
		TokenLength:     app.cfg.InvitationTokenLength,
		Expiry:          time.Duration(app.cfg.InvitationExpiryDays) * 24 * time.Hour,
		DefaultPageSize: app.cfg.DefaultPageSize,
		MaxPageSize:     app.cfg.MaxPageSize,
	}, app.cfg.ContextTimeout)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    app.cfg.EmailProvider,
		FromAddress: app.cfg.EmailFromAddress,
		FromName:    app.cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          app.cfg.AWSRegion,
			AccessKeyID:     app.cfg.AWSAccessKeyID,
			SecretAccessKey: app.cfg.AWSSecretAccessKey,
		},
		SendGrid: email.SendGridConfig{APIKey: app.cfg.SendGridAPIKey},
	})
	if err != nil {
		return fmt.Errorf("init mailer: %w", err)
	}
	app.emailService = services.NewEmailService(mailer, email.NewTemplateRenderer(), services.InvitationEmailConfig{
		AppBaseURL:   app.cfg.AppBaseURL,
		CompanyName:  app.cfg.CompanyName,
		SupportEmail: app.cfg.SupportEmail,
		BrandColor:   app.cfg.BrandColor,
	})

	app.membership = services.NewLoggingMembershipAssigner(app.logger)
	app.audit = services.NewSlogAuditLogger(app.logger)
	app.sweeper = services.NewExpirySweeper(app.invitationService, app.logger, app.cfg.SweepInterval)
	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	verifier := auth.NewJWTVerifier(app.cfg.JWTSecret)
	acceptLimiter := middleware.NewRateLimiter(app.cfg.AcceptRateLimitRPS, app.cfg.AcceptRateLimitBurst)

	invitationController := controllers.NewInvitationController(
		app.logger, app.invitationService, app.emailService, app.membership, app.audit)
	healthController := controllers.NewHealthController(app.logger, app.db)

	mux := httpdelivery.NewRouter(app.logger, verifier, acceptLimiter, invitationController, healthController)
	handler := middleware.CORS(app.cfg.CORSAllowedOrigins, middleware.LoggingMiddleware(app.logger, mux))

	app.server = &http.Server{
		Addr:              ":" + app.cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
