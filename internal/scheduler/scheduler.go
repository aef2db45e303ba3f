package scheduler

import (
	"context"
	"log/slog"
	"time"

	"reward_collector/internal/domain"
)

// Collector defines the interface for collection cycles.
type Collector interface {
	RunCycle(ctx context.Context, dryRun bool) (*domain.CycleStats, error)
}

type Scheduler struct {
	collector Collector
	interval  time.Duration
	dryRun    bool
	logger    *slog.Logger
}

func NewScheduler(collector Collector, interval time.Duration, dryRun bool, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		collector: collector,
		interval:  interval,
		dryRun:    dryRun,
		logger:    logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "dry_run", s.dryRun)

	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	// No overall cycle deadline: every network operation inside the
	// cycle is individually time-bounded.
	if _, err := s.collector.RunCycle(ctx, s.dryRun); err != nil {
		s.logger.Error("cycle failed", "error", err)
	}
}
