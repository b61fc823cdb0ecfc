package core

// scheduler.go triggers import runs periodically.
//
// The scheduler is long-running and context-aware for graceful shutdown.
// A failed or skipped run is logged and the next tick tries again; the
// scheduler itself never stops on a run error.

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// StartScheduler runs o immediately, then every interval, until ctx is
// cancelled. A tick that finds a run already in progress is skipped.
func (o *Orchestrator) StartScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	slog.Info("import scheduler started", "interval", interval.String())

	// Run immediately on startup
	o.scheduledRun(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("import scheduler stopped")
			return
		case <-ticker.C:
			o.scheduledRun(ctx)
		}
	}
}

// scheduledRun performs one scheduled run.
func (o *Orchestrator) scheduledRun(ctx context.Context) {
	start := time.Now()

	run, err := o.Run(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		slog.Info("scheduled run skipped, another run is in progress")
	case err != nil && run.ID == 0:
		slog.Error("scheduled run could not start", "error", err)
	default:
		slog.Info("scheduled run finished",
			"run_id", run.ID,
			"status", run.Status(),
			"failed_phase", run.FailedPhase,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
