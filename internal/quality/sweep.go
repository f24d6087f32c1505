package quality

import (
	"context"
	"log/slog"
	"time"
)

// SweepConfig holds configuration for the background analysis sweep.
type SweepConfig struct {
	Interval time.Duration // How often to run (default: 24h)
	Types    []string      // Resource types to analyze (default: all registered)
}

// StartAnalysisSweep runs Analyze across the configured types on a
// ticker, logging proposal counts so operators see data drift without
// asking for it. It runs immediately on start, then every Interval, and
// stops when the context is cancelled. Failures are logged, never fatal.
func (s *Service) StartAnalysisSweep(ctx context.Context, cfg SweepConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if len(cfg.Types) == 0 {
		cfg.Types = s.reg.Types()
	}

	slog.Info("analysis sweep started",
		"interval", cfg.Interval,
		"types", cfg.Types,
	)

	s.runSweep(ctx, cfg.Types)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("analysis sweep stopped")
			return
		case <-ticker.C:
			s.runSweep(ctx, cfg.Types)
		}
	}
}

// runSweep performs one analysis pass over every configured type.
func (s *Service) runSweep(ctx context.Context, types []string) {
	start := time.Now()
	total := 0

	for _, typ := range types {
		if ctx.Err() != nil {
			return
		}
		changes, err := s.Analyze(ctx, typ)
		if err != nil {
			slog.Error("sweep analysis failed", "resource_type", typ, "error", err)
			continue
		}
		total += len(changes)
	}

	slog.Info("analysis sweep completed",
		"proposals", total,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
