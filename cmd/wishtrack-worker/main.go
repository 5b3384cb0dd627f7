package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"wishtrack/internal/amqp"
	"wishtrack/internal/config"
	applog "wishtrack/internal/log"
	"wishtrack/internal/scrape"
	"wishtrack/internal/services"
	"wishtrack/internal/storage"
	"wishtrack/internal/worker"
)

func main() {
	_ = godotenv.Load()
	applog.Setup()

	slog.Info("Starting wishtrack-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		slog.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		slog.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	gateway := scrape.NewGateway(nil)
	items := services.NewItemService(repo, gateway, nil)
	refreshWorker := worker.NewRefreshWorker(items, cfg.RefreshBatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		slog.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	go func() {
		if err := amqpClient.ConsumeItemRefresh(ctx, refreshWorker.HandleRefreshMessage); err != nil {
			if !errors.Is(err, context.Canceled) {
				slog.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	slog.Info("Worker running",
		"refresh_interval", cfg.RefreshInterval.String(),
		"batch_size", cfg.RefreshBatchSize)

	if err := refreshWorker.Run(ctx, cfg.RefreshInterval); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("Worker stopped gracefully")
}
