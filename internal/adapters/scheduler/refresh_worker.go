// Package scheduler runs the background refresh loop and the degraded-mode
// cron nudge.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/pixeltoplanet/carbonfooter-service/internal/ports"
)

// RefreshRunner executes one scheduled refresh, releasing the page's lock
// regardless of the measurement outcome.
type RefreshRunner interface {
	RunScheduledRefresh(ctx context.Context, pageID int64) error
}

// RefreshWorker drains the refresh queue on a fixed interval. Each dequeued
// page id is one one-shot task; failed measurements are not re-enqueued here
// because the payload staying stale causes a retry on the next page view.
type RefreshWorker struct {
	logger    *slog.Logger
	queue     ports.RefreshQueue
	runner    RefreshRunner
	interval  time.Duration
	batchSize int
}

func NewRefreshWorker(logger *slog.Logger, queue ports.RefreshQueue, runner RefreshRunner, interval time.Duration, batchSize int) *RefreshWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	return &RefreshWorker{
		logger:    logger,
		queue:     queue,
		runner:    runner,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run executes the periodic drain loop until context cancellation.
func (w *RefreshWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "refresh iteration failed",
				"module", "scheduler.refresh_worker",
				"layer", "adapter",
				"operation", "refresh_process_once",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *RefreshWorker) processOnce(ctx context.Context) error {
	processed := 0
	failed := 0
	for i := 0; i < w.batchSize; i++ {
		pageID, ok, err := w.queue.Dequeue(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := w.runner.RunScheduledRefresh(ctx, pageID); err != nil {
			failed++
			w.logger.WarnContext(ctx, "scheduled refresh failed",
				"module", "scheduler.refresh_worker",
				"layer", "adapter",
				"operation", "run_refresh",
				"outcome", "failure",
				"page_id", pageID,
				"error", err,
			)
			continue
		}
		processed++
	}
	if processed > 0 || failed > 0 {
		w.logger.InfoContext(ctx, "refresh batch processed",
			"module", "scheduler.refresh_worker",
			"layer", "adapter",
			"operation", "refresh_process_once",
			"outcome", "success",
			"processed_count", processed,
			"failed_count", failed,
		)
	}
	return nil
}
