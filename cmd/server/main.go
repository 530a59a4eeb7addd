package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/rs/zerolog"

	"github.com/cse408-project/secureherai-api/internal/alert"
	"github.com/cse408-project/secureherai-api/internal/config"
	"github.com/cse408-project/secureherai-api/internal/handlers"
	"github.com/cse408-project/secureherai-api/internal/middleware"
	"github.com/cse408-project/secureherai-api/internal/migration"
	"github.com/cse408-project/secureherai-api/internal/notification"
	"github.com/cse408-project/secureherai-api/internal/repository"
	"github.com/cse408-project/secureherai-api/internal/routes"
	"github.com/cse408-project/secureherai-api/internal/scheduler"
	"github.com/cse408-project/secureherai-api/internal/transcribe"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config      *config.Config
	db          *sql.DB
	logger      zerolog.Logger
	triggers    *alert.TriggerService
	alerts      *alert.Service
	queries     *alert.QueryService
	assignments *alert.AssignmentService
	maintenance *alert.Maintenance
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	if err := migration.RunMigrations(cfg.DatabaseURL, logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	app := newApplication(cfg, db, logger)

	// Start the maintenance scheduler.
	sched := scheduler.New(logger)
	if err := sched.AddEvery(cfg.Alert.SweepInterval, "expire_stale_alerts", func(ctx context.Context) error {
		_, err := app.maintenance.ExpireStaleAlerts(ctx)
		return err
	}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register alert sweep")
	}
	if err := sched.AddEvery(cfg.Alert.AccountSweepInterval, "purge_unverified_accounts", func(ctx context.Context) error {
		_, err := app.maintenance.PurgeUnverifiedAccounts(ctx)
		return err
	}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register account sweep")
	}
	sched.Start()

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"http://localhost:3000"}),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, sched, logger)

	logger.Info().Msg("Application terminated.")
}

func newApplication(cfg *config.Config, db *sql.DB, logger zerolog.Logger) *application {
	// Repositories
	alertRepo := repository.NewAlertRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	contactRepo := repository.NewContactRepository(db)
	responderRepo := repository.NewResponderRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Notification channels
	emailChannel, err := notification.NewEmailChannel(cfg.Email, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure email channel")
	}
	smsChannel := notification.NewSMSChannel(cfg.SMS, logger)
	var pushClient notification.PushClient
	if cfg.Push.Enabled {
		pushClient = notification.NewFCMClient(cfg.Push)
	}
	pushChannel := notification.NewPushChannel(cfg.Push, pushClient, logger)

	dispatcher := notification.NewDispatcher(
		contactRepo, responderRepo, userRepo, notifRepo,
		emailChannel, smsChannel, pushChannel,
		notification.DispatcherConfig{
			PerRecipientTimeout: cfg.Dispatch.PerRecipientTimeout,
			OverallTimeout:      cfg.Dispatch.OverallTimeout,
			MaxParallel:         cfg.Dispatch.MaxParallel,
			ProximityRadiusKm:   cfg.Dispatch.ProximityRadiusKm,
		},
		logger,
	)

	transcriber, err := transcribe.NewHTTPClient(cfg.Transcription)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure transcription client")
	}

	// Core services
	alertService := alert.NewService(alertRepo, notifRepo, alert.ServiceConfig{DedupWindow: cfg.Alert.DedupWindow}, logger)
	triggerService := alert.NewTriggerService(alertService, userRepo, transcriber, dispatcher, cfg.Alert.DefaultKeyword, logger)
	queryService := alert.NewQueryService(alertRepo, notifRepo)
	assignmentService := alert.NewAssignmentService(alertService, notifRepo, responderRepo, dispatcher, logger)
	maintenance := alert.NewMaintenance(alertService, alertRepo, userRepo, alert.MaintenanceConfig{
		ExpiryAge:     cfg.Alert.ExpiryAge,
		AccountMaxAge: cfg.Alert.AccountMaxAge,
	}, logger)

	return &application{
		config:      cfg,
		db:          db,
		logger:      logger,
		triggers:    triggerService,
		alerts:      alertService,
		queries:     queryService,
		assignments: assignmentService,
		maintenance: maintenance,
	}
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	triggerHandler := handlers.NewTriggerHandler(app.triggers, logger)
	alertHandler := handlers.NewAlertHandler(app.alerts, app.queries, logger)
	responderHandler := handlers.NewResponderHandler(app.alerts, app.assignments, logger)

	return routes.NewRouter(app.config.JWTSecret, triggerHandler, alertHandler, responderHandler)
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, sched *scheduler.Scheduler, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop the maintenance scheduler.
	sched.Stop()
}
