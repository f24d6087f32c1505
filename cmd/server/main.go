package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/forkful/backoffice/internal/audit"
	"github.com/forkful/backoffice/internal/config"
	"github.com/forkful/backoffice/internal/logging"
	"github.com/forkful/backoffice/internal/quality"
	"github.com/forkful/backoffice/internal/registry"
	"github.com/forkful/backoffice/internal/resource"
	"github.com/forkful/backoffice/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"bulk_max_concurrent", cfg.Bulk.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"sweep_enabled", cfg.Sweep.Enabled,
	)

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		dbName := strings.TrimPrefix(u.Path, "/")
		slog.Info("connected to database", "name", dbName)
	} else {
		slog.Info("connected to database")
	}

	reg := registry.Default()
	slog.Info("resource types registered", "count", len(reg.Types()), "types", reg.Types())

	recorder := audit.NewRecorder(pool)
	manager := resource.NewManager(pool, reg, recorder)
	qual := quality.NewService(manager, quality.DisabledPlaceLookup{}, recorder)

	server := web.NewServer(cfg, manager, qual, recorder)

	// Cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	if cfg.Sweep.Enabled {
		go qual.StartAnalysisSweep(jobCtx, quality.SweepConfig{
			Interval: cfg.Sweep.Interval,
		})
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// In-flight bulk imports hold open transactions; Shutdown waits
		// for them through the limiter.
		if status := server.ImportStatus(); status.Active > 0 {
			slog.Info("waiting for bulk imports to complete", "active", status.Active)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		} else {
			slog.Info("shutdown complete")
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
