package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/stemtide/stemtide_backend/internal/core/services"
	"github.com/stemtide/stemtide_backend/internal/platform/config"
	"github.com/stemtide/stemtide_backend/internal/platform/engine"
	"github.com/stemtide/stemtide_backend/internal/queue"
	"github.com/stemtide/stemtide_backend/internal/repositories/database/pgsql"
	"github.com/stemtide/stemtide_backend/internal/worker"
	"github.com/stemtide/stemtide_backend/pkg/database"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established.")

	repos := pgsql.NewRepositoryProvider(dbPool)
	serviceContainer := services.NewServiceContainer(cfg, repos)

	processingEngine := engine.NewHTTPEngine(cfg)
	processor := worker.NewProcessor(repos.JobRepo, serviceContainer.Job, processingEngine, logger)

	consumer := queue.NewConsumer(cfg.RabbitMQURL, processor.Handle, logger)

	logger.Info("Worker starting", slog.String("engine_url", cfg.EngineURL))
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Worker shut down.")
}
