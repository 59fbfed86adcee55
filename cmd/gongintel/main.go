package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/gongintel/gongintel/internal/analysis"
	"github.com/gongintel/gongintel/internal/anthropic"
	"github.com/gongintel/gongintel/internal/api"
	"github.com/gongintel/gongintel/internal/calls"
	"github.com/gongintel/gongintel/internal/config"
	"github.com/gongintel/gongintel/internal/drive"
	"github.com/gongintel/gongintel/internal/events"
	"github.com/gongintel/gongintel/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("gongintel starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// Anthropic client
	if cfg.AnthropicAPIKey == "" {
		slog.Error("ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}
	llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	slog.Info("anthropic client ready", "model", cfg.AnthropicModel)

	// Drive client
	if cfg.DriveFolderID == "" || cfg.DriveAccessToken == "" {
		slog.Error("DRIVE_FOLDER_ID and DRIVE_ACCESS_TOKEN are required")
		os.Exit(1)
	}
	driveClient := drive.NewClient(cfg.DriveAccessToken, cfg.DriveFolderID, slog.Default())

	// Event publisher (optional — the pipeline works without NATS)
	var publisher *events.Publisher
	if cfg.NatsURL != "" {
		publisher, err = events.NewPublisher(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured — running without analysis events")
	}

	// Analysis pipeline
	analyzer := analysis.NewAnalyzer(llm, slog.Default())
	analysisSvc := analysis.NewService(db, driveClient, analyzer, publisher, slog.Default())

	// Call sync/listing
	callsSvc := calls.NewService(driveClient, db, db, slog.Default())

	// HTTP API
	if cfg.APIToken == "" {
		slog.Warn("GONGINTEL_API_TOKEN not set — API token check disabled")
	}
	srv := api.NewServer(cfg.Port, cfg.APIToken, callsSvc, analysisSvc, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("gongintel ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("gongintel stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
