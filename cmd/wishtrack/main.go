package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"wishtrack/internal/amqp"
	"wishtrack/internal/config"
	"wishtrack/internal/export"
	apphttp "wishtrack/internal/http"
	applog "wishtrack/internal/log"
	"wishtrack/internal/scrape"
	"wishtrack/internal/services"
	"wishtrack/internal/storage"
)

func main() {
	// Load .env for local development; production sets real env vars.
	_ = godotenv.Load()
	applog.Setup()

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

	// AMQP is optional; without it refresh jobs run synchronously only.
	var publisher services.RefreshPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Warn("AMQP unavailable, async refresh disabled", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	var exporter export.LedgerWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := export.NewGoogleFromEnv(context.Background())
		if err != nil {
			slog.Error("Failed to initialize Sheets ledger export", "error", err)
			os.Exit(1)
		}
		exporter = client
		slog.Info("Sheets ledger export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	gateway := scrape.NewGateway(nil)
	items := services.NewItemService(repo, gateway, publisher)
	months := services.NewMonthService(repo)

	srv := apphttp.NewServer(":"+cfg.Port, items, months, repo, exporter)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		slog.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	slog.Info("Starting wishtrack server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("Server stopped gracefully")
}
