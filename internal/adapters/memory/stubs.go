package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

// MeasurementClient returns scripted results per page and records calls.
type MeasurementClient struct {
	mu      sync.Mutex
	results map[int64]domain.Measurement
	failAll bool
	calls   []string
}

func NewMeasurementClient() *MeasurementClient {
	return &MeasurementClient{results: map[int64]domain.Measurement{}}
}

func (c *MeasurementClient) SetResult(pageID int64, result domain.Measurement) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[pageID] = result
}

func (c *MeasurementClient) FailAll(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failAll = fail
}

func (c *MeasurementClient) Measure(_ context.Context, targetURL string, pageID int64) (*domain.Measurement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, targetURL)
	if c.failAll {
		return nil, fmt.Errorf("%w: scripted failure for page %d", domain.ErrMeasurementFailed, pageID)
	}
	result, ok := c.results[pageID]
	if !ok {
		return nil, fmt.Errorf("%w: no scripted result for page %d", domain.ErrMeasurementFailed, pageID)
	}
	if result.MeasuredAt.IsZero() {
		result.MeasuredAt = time.Now().UTC()
	}
	out := result
	return &out, nil
}

// Calls returns the target URLs measured so far; test helper.
func (c *MeasurementClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.calls...)
}

// CronPinger counts pings; test helper.
type CronPinger struct {
	mu    sync.Mutex
	pings int
}

func NewCronPinger() *CronPinger {
	return &CronPinger{}
}

func (p *CronPinger) Ping(_ context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pings++
}

func (p *CronPinger) Pings() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pings
}

// EventPublisher records published events in order.
type EventPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

type PublishedEvent struct {
	EventType    string
	Payload      []byte
	PartitionKey string
}

func NewEventPublisher() *EventPublisher {
	return &EventPublisher{}
}

func (p *EventPublisher) Publish(_ context.Context, eventType string, payload []byte, partitionKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, PublishedEvent{EventType: eventType, Payload: payload, PartitionKey: partitionKey})
	return nil
}

func (p *EventPublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedEvent{}, p.events...)
}
