package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"userapi/internal/config"
	"userapi/internal/database"
	"userapi/internal/database/migration"
	handlers "userapi/internal/http/handler"
	"userapi/internal/http/middleware"
	"userapi/internal/logger"
	"userapi/internal/model"
	"userapi/internal/otel"
	"userapi/internal/repository"
	"userapi/internal/repository/instrument"
	"userapi/internal/repository/memory"
	"userapi/internal/repository/postgres"
	"userapi/internal/service"
)

var version = "dev"

// @title User API
// @version 1.0
// @BasePath /
func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: cfg.ServiceName,
		Version:     version,
	})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, cfg.ServiceName, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Error("tracing shutdown failed", "error", err)
		}
	}()

	repo, health, closeRepo, err := newRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	repoMetrics, err := instrument.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register repository metrics: %w", err)
	}
	userSvc := service.NewUserService(instrument.New(repo, cfg.Backend, repoMetrics), log)

	httpMetrics, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		DisableStartupMessage: true,
	})

	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(httpMetrics.Handler())

	handlers.RegisterRoutes(app, health, userSvc, prometheus.DefaultGatherer)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", handlers.Swagger(cfg.AppHost))

	addr := ":" + cfg.Port

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "addr", addr, "backend", cfg.Backend)
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newRepository builds the configured backend together with its health probe and cleanup.
func newRepository(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (repository.UserRepository, handlers.HealthChecker, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("failed to bootstrap schema: %w", err)
		}
		return postgres.NewUserPostgres(db), db, closeDB(db, log), nil

	default:
		var opts []memory.Option
		if cfg.SeedDemoUser {
			opts = append(opts, memory.WithSeed(demoUser()))
		}
		return memory.NewUserMemory(opts...), handlers.AlwaysHealthy, func() {}, nil
	}
}

func closeDB(db *sql.DB, log *slog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", "error", err)
		}
	}
}

func demoUser() model.User {
	return model.User{
		ID:         uuid.MustParse("3fa85f64-5717-4562-b3fc-2c963f66afa6"),
		Name:       "Rob",
		BirthDate:  civil.Date{Year: 1977, Month: time.March, Day: 10},
		CustomData: model.CustomData{Random: 1},
	}
}
