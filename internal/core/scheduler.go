package core

// scheduler.go runs history retention in the background.
//
// Every snapshot is kept by default. When retention is configured, the job
// deletes snapshots beyond the newest KeepSnapshots and any older than
// MaxAge. The newest snapshot is never removed, since reconciliation and
// progress depend on it. Failures are logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// HistoryPruner is implemented by stores that can delete old snapshots.
// Prune removes snapshots outside the newest keep entries and, when
// olderThan is non-zero, those imported before it. It never removes the
// newest snapshot and returns the number deleted.
type HistoryPruner interface {
	Prune(ctx context.Context, keep int, olderThan time.Time) (int64, error)
}

// RetentionConfig holds history retention settings. Zero values disable
// the corresponding rule.
type RetentionConfig struct {
	KeepSnapshots int           // Newest snapshots to keep (0 = unlimited)
	MaxAge        time.Duration // Delete snapshots older than this (0 = forever)
	CheckInterval time.Duration // How often to run (default: 24h)
}

// Enabled reports whether any retention rule is set.
func (c RetentionConfig) Enabled() bool {
	return c.KeepSnapshots > 0 || c.MaxAge > 0
}

// StartRetentionScheduler prunes history immediately and then every
// CheckInterval until ctx is cancelled. It returns at once when the store
// cannot prune or no rule is configured.
func (s *Service) StartRetentionScheduler(ctx context.Context, cfg RetentionConfig) {
	pruner, ok := s.store.(HistoryPruner)
	if !ok || !cfg.Enabled() {
		return
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 24 * time.Hour
	}

	slog.Info("retention scheduler started",
		"keep_snapshots", cfg.KeepSnapshots,
		"max_age", cfg.MaxAge,
		"interval", cfg.CheckInterval,
	)

	s.runRetentionJob(ctx, pruner, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention scheduler stopped")
			return
		case <-ticker.C:
			s.runRetentionJob(ctx, pruner, cfg)
		}
	}
}

// runRetentionJob performs one prune cycle.
func (s *Service) runRetentionJob(ctx context.Context, pruner HistoryPruner, cfg RetentionConfig) {
	start := time.Now()

	var cutoff time.Time
	if cfg.MaxAge > 0 {
		cutoff = s.now().UTC().Add(-cfg.MaxAge)
	}

	deleted, err := pruner.Prune(ctx, cfg.KeepSnapshots, cutoff)
	if err != nil {
		slog.Error("retention job failed", "error", err)
		return
	}

	slog.Info("retention job completed",
		"snapshots_deleted", deleted,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
