package calendar

// scheduler.go runs maintenance jobs in the background.
//
// The only job today purges import history older than the retention
// window. It runs once at start and then on a cron schedule until the
// context is cancelled. Failures are logged; they never stop the server.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// CleanupConfig controls the history cleanup job.
type CleanupConfig struct {
	Retention time.Duration // Keep history this long (default: 90 days)
	Schedule  string        // Cron spec or descriptor (default: "@daily")
}

// StartHistoryCleanup purges old import history now and then on cfg.Schedule.
// It blocks until ctx is cancelled.
func (s *Service) StartHistoryCleanup(ctx context.Context, cfg CleanupConfig) error {
	if cfg.Retention <= 0 {
		cfg.Retention = 90 * 24 * time.Hour
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@daily"
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Schedule, func() { s.runHistoryCleanup(ctx, cfg) }); err != nil {
		return fmt.Errorf("schedule history cleanup %q: %w", cfg.Schedule, err)
	}

	slog.Info("history cleanup scheduled",
		"schedule", cfg.Schedule,
		"retention_days", int(cfg.Retention.Hours()/24),
	)

	s.runHistoryCleanup(ctx, cfg)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("history cleanup stopped")
	return nil
}

func (s *Service) runHistoryCleanup(ctx context.Context, cfg CleanupConfig) {
	start := time.Now()
	n, err := s.PurgeImportHistory(ctx, cfg.Retention)
	if err != nil {
		slog.Error("history cleanup failed", "error", err)
		return
	}
	slog.Info("history cleanup completed",
		"entries_purged", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
