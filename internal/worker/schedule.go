// Package worker runs the aggregation on a schedule.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/coinledger/holdings/internal/domain"
)

// RunTrigger starts one aggregation run.
type RunTrigger interface {
	Execute(ctx context.Context, trigger domain.TriggerType) domain.RunSummary
}

// AfterRunHook is called after each scheduled run.
type AfterRunHook interface {
	Export(ctx context.Context, summary domain.RunSummary) error
}

// ScheduleWorker triggers runs on a fixed interval.
type ScheduleWorker struct {
	trigger  RunTrigger
	interval time.Duration
	hook     AfterRunHook // optional
}

// NewScheduleWorker creates a schedule worker with an optional post-run hook.
func NewScheduleWorker(trigger RunTrigger, interval time.Duration, hook AfterRunHook) *ScheduleWorker {
	return &ScheduleWorker{trigger: trigger, interval: interval, hook: hook}
}

// Run starts the worker loop. It runs once immediately, then on every tick,
// and blocks until the context is cancelled.
func (w *ScheduleWorker) Run(ctx context.Context) {
	slog.Info("ScheduleWorker: starting", "interval", w.interval)

	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ScheduleWorker: shutting down")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *ScheduleWorker) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	summary := w.trigger.Execute(ctx, domain.TriggerScheduled)
	slog.Info("ScheduleWorker: run completed",
		"success", summary.Success,
		"wallets", summary.WalletsProcessed,
		"records", summary.RecordsWritten,
		"errors", len(summary.Errors))

	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx, summary); err != nil {
		slog.Error("ScheduleWorker: export hook failed", "error", err)
	} else {
		slog.Info("ScheduleWorker: export hook completed")
	}
}
