package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const retentionSchedule = "@every 10m"

// RetentionSweeper evicts finished jobs from the memory store on a schedule.
type RetentionSweeper struct {
	store  *MemoryJobStore
	maxAge time.Duration
	cron   *cron.Cron
	logger *slog.Logger
}

func NewRetentionSweeper(store *MemoryJobStore, maxAge time.Duration, logger *slog.Logger) *RetentionSweeper {
	return &RetentionSweeper{
		store:  store,
		maxAge: maxAge,
		cron:   cron.New(),
		logger: logger.With("component", "retention"),
	}
}

// Start registers the sweep and starts the scheduler.
func (r *RetentionSweeper) Start() error {
	if _, err := r.cron.AddFunc(retentionSchedule, func() { r.Sweep() }); err != nil {
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}
	r.cron.Start()
	r.logger.Info("retention sweep scheduled", "schedule", retentionSchedule, "max_age", r.maxAge)
	return nil
}

// Sweep removes terminal jobs older than maxAge.
func (r *RetentionSweeper) Sweep() int {
	removed := r.store.DeleteTerminalBefore(time.Now().Add(-r.maxAge))
	if removed > 0 {
		r.logger.Info("expired jobs removed", "removed", removed, "remaining", r.store.Len())
	}
	return removed
}

// Stop stops the scheduler and waits for a running sweep.
func (r *RetentionSweeper) Stop() {
	<-r.cron.Stop().Done()
}
