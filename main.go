// Command hatewatch is the main entrypoint for the comment toxicity pipeline.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Wires the upstream YouTube client, the toxicity analyzer, the broadcast
//     hub, and the ingestion pipeline.
//   - Exposes the HTTP API: /live/command, /live/stream, /videos/analyze,
//     /comments, /comments/analytics, /healthz, /readyz, /status, /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM; running ingestion sessions observe
// cancellation at the top of their next poll.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"hatewatch/config"
	"hatewatch/db"
	"hatewatch/pipeline"
	"hatewatch/server"
	"hatewatch/telemetry"
	"hatewatch/toxicity"
	"hatewatch/youtubeapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateUpstreamReady(); err != nil {
		slog.Warn("upstream polling disabled until configured", slog.Any("err", err))
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("hatewatch", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// DB
	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	// Run database migrations: versioned (golang-migrate) first, embedded SQL
	// as fallback for deployments without schema version tracking.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, attempting fallback to embedded SQL",
			slog.Any("err", err),
			slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db (both versioned and embedded SQL failed)", slog.Any("err", err))
			os.Exit(1)
		}
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Upstream YouTube client
	source, err := youtubeapi.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to init youtube client", slog.Any("err", err))
		os.Exit(1)
	}

	// Pipeline wiring: analyzer -> orchestrator -> hub fan-out
	hub := pipeline.NewHub()
	orch := &pipeline.Orchestrator{
		Analyzer: toxicity.NewClient(cfg),
		Store:    &db.Store{DB: database},
		Hub:      hub,
	}
	pipe := pipeline.New(cfg, source, orch)

	handlers := server.NewHandlers(ctx, database, pipe, hub, source)
	done := make(chan error, 1)
	go func() { done <- server.Start(ctx, handlers, cfg.HTTPAddr) }()
	slog.Info("http server started", slog.String("addr", cfg.HTTPAddr))

	// Block until shutdown signal or server failure
	select {
	case err := <-done:
		if err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		if err := <-done; err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}
}
