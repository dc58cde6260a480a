package ports

import "context"

// EventPublisher emits domain events to the bus.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}
