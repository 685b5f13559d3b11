// Command leadflow runs the profile acquisition service: SQLite stores,
// the Chrome manager, the acquisition engine, the HTTP API, and the
// scheduled history retention job.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	_ "modernc.org/sqlite"

	"github.com/nicksriv/leadflow/api"
	"github.com/nicksriv/leadflow/archive"
	"github.com/nicksriv/leadflow/browse"
	"github.com/nicksriv/leadflow/dbopen"
	"github.com/nicksriv/leadflow/history"
	"github.com/nicksriv/leadflow/linkedin"
	"github.com/nicksriv/leadflow/session"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	// Logging.
	var lvl slog.Level
	switch env("LOG_LEVEL", "info") {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(env("LEADFLOW_CONFIG", "leadflow.yaml"))
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	if v := os.Getenv("LEADFLOW_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("LEADFLOW_DB"); v != "" {
		cfg.DBPath = v
	}

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := dbopen.Open(cfg.DBPath,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(session.Schema),
		dbopen.WithSchema(archive.Schema),
		dbopen.WithSchema(history.Schema))
	if err != nil {
		slog.Error("open db", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	sessions := session.NewStore(db, logger)
	archives := archive.NewStore(db, logger)
	views := history.NewStore(db, logger)

	bcfg := cfg.browserConfig()
	bcfg.Logger = logger
	manager := browse.NewManager(bcfg)
	if err := manager.Start(ctx); err != nil {
		slog.Error("start browser", "error", err)
		os.Exit(1)
	}
	defer manager.Close()

	engine := linkedin.New(cfg.engineConfig(), manager, sessions, archives, views, logger)

	// Scheduled history retention.
	sched := cron.New()
	_, err = sched.AddFunc(cfg.Retention.Schedule, func() {
		cutoff := time.Now().Add(-time.Duration(cfg.Retention.MaxAgeDays) * 24 * time.Hour)
		n, err := views.PruneOlderThan(context.Background(), cutoff)
		if err != nil {
			slog.Error("history retention", "error", err)
			return
		}
		slog.Info("history retention done", "deleted", n, "max_age_days", cfg.Retention.MaxAgeDays)
	})
	if err != nil {
		slog.Error("retention schedule", "schedule", cfg.Retention.Schedule, "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.NewService(engine, logger).Router(cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("leadflow listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
