package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pixeltoplanet/carbonfooter-service/internal/contracts"
)

// ContentEventHandler applies one content-lifecycle event to the cache
// layer (mark stale, drop derived views).
type ContentEventHandler interface {
	HandleContentEvent(ctx context.Context, event contracts.ContentEvent) error
}

// ContentWorker polls the content topics and feeds events to the handler.
type ContentWorker struct {
	logger   *slog.Logger
	consumer *KafkaConsumer
	handler  ContentEventHandler
	interval time.Duration
	batch    int
}

func NewContentWorker(logger *slog.Logger, consumer *KafkaConsumer, handler ContentEventHandler, interval time.Duration, batch int) *ContentWorker {
	if interval <= 0 {
		interval = time.Second
	}
	if batch <= 0 {
		batch = 50
	}
	return &ContentWorker{logger: logger, consumer: consumer, handler: handler, interval: interval, batch: batch}
}

// Run polls until context cancellation.
func (w *ContentWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "content event iteration failed",
				"module", "events.content_worker",
				"layer", "adapter",
				"operation", "content_process_once",
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

func (w *ContentWorker) processOnce(ctx context.Context) error {
	messages, err := w.consumer.Poll(ctx, w.batch)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		var event contracts.ContentEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			w.logger.WarnContext(ctx, "dropping undecodable content event",
				"module", "events.content_worker",
				"layer", "adapter",
				"operation", "decode_event",
				"outcome", "failure",
				"topic", msg.Topic,
				"error", err,
			)
			continue
		}
		if event.EventType == "" {
			event.EventType = msg.Topic
		}
		if err := w.handler.HandleContentEvent(ctx, event); err != nil {
			w.logger.WarnContext(ctx, "content event handling failed",
				"module", "events.content_worker",
				"layer", "adapter",
				"operation", "handle_event",
				"outcome", "failure",
				"page_id", event.PageID,
				"event_type", event.EventType,
				"error", err,
			)
		}
	}
	return nil
}
