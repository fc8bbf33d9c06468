package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	portssvc "github.com/civpoints/community_points_app/internal/core/ports/services"
	"github.com/civpoints/community_points_app/internal/core/services"
	"github.com/civpoints/community_points_app/internal/handlers"
	"github.com/civpoints/community_points_app/internal/middleware"
	"github.com/civpoints/community_points_app/internal/notifications"
	notifkafka "github.com/civpoints/community_points_app/internal/notifications/kafka"
	"github.com/civpoints/community_points_app/internal/platform/config"
	"github.com/civpoints/community_points_app/internal/repositories/database/pgsql"
	"github.com/civpoints/community_points_app/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePgxPool(dbPool)
	logger.Info("Database connection pool established.")

	if err := runMigrations(logger, cfg.DatabaseURL); err != nil {
		logger.Error("Failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Wire repositories and services.
	repos := pgsql.NewRepositoryProvider(dbPool)

	var notifier portssvc.Notifier
	if len(cfg.KafkaBrokers) > 0 {
		publisher := notifkafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if cerr := publisher.Close(); cerr != nil {
				logger.Error("Error closing Kafka publisher", slog.String("error", cerr.Error()))
			}
		}()
		notifier = publisher
		logger.Info("Kafka notifier configured", slog.String("topic", cfg.KafkaTopic))
	} else {
		notifier = notifications.LogNotifier{}
		logger.Info("No Kafka brokers configured, notifications go to the log.")
	}

	container, pool := services.NewServiceContainer(&repos, notifier, cfg)

	// Root context cancelled on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerCtx := middleware.WithLogger(context.Background(), logger)
	pool.Start(workerCtx)

	// Re-enqueue transfers approved before the last shutdown.
	if count, err := container.Transfer.RecoverApproved(workerCtx); err != nil {
		logger.Error("Startup recovery failed", slog.String("error", err.Error()))
	} else if count > 0 {
		logger.Info("Recovered approved transfers", slog.Int("count", count))
	}

	sweepDone := make(chan struct{})
	go runSweeps(ctx, workerCtx, logger, cfg.SweepInterval, container, sweepDone)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.Default())

	rateLimiter := limiter.New(memory.NewStore(), limiter.Rate{Period: time.Minute, Limit: 120})
	r.Use(middleware.RateLimit(rateLimiter))

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, container)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", slog.String("error", err.Error()))
	}

	<-sweepDone
	// Drain in-flight settlements; unsettled work stays approved in the store
	// and is recovered on the next start.
	pool.Stop()
	logger.Info("Shutdown complete")
}

// runSweeps drives the periodic maintenance loops: pending-transfer expiry,
// proposal expiry, execution retries, and settlement recovery.
func runSweeps(ctx, workerCtx context.Context, logger *slog.Logger, interval time.Duration, container *portssvc.ServiceContainer, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := container.Transfer.ExpireStale(workerCtx, now); err != nil {
				logger.Error("Transfer expiry sweep failed", slog.String("error", err.Error()))
			}
			if _, err := container.Governance.ExpireStale(workerCtx, now); err != nil {
				logger.Error("Proposal expiry sweep failed", slog.String("error", err.Error()))
			}
			if _, err := container.Governance.RetryExecution(workerCtx); err != nil {
				logger.Error("Execution retry sweep failed", slog.String("error", err.Error()))
			}
			if _, err := container.Transfer.RecoverApproved(workerCtx); err != nil {
				logger.Error("Settlement recovery sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runMigrations applies all pending "up" migrations over a temporary
// database/sql connection using the pgx stdlib driver.
func runMigrations(logger *slog.Logger, databaseURL string) error {
	logger.Info("Running database migrations...")

	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}
