// Package memory provides in-memory implementations of every port for unit
// and contract tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

// PayloadStore is a map-backed payload tier. TTLs are not simulated; tests
// drive staleness through the payload fields themselves.
type PayloadStore struct {
	mu       sync.Mutex
	payloads map[int64]domain.Payload
}

func NewPayloadStore() *PayloadStore {
	return &PayloadStore{payloads: map[int64]domain.Payload{}}
}

func (s *PayloadStore) Get(_ context.Context, pageID int64) (*domain.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.payloads[pageID]
	if !ok {
		return nil, nil
	}
	out := payload
	return &out, nil
}

func (s *PayloadStore) Set(_ context.Context, pageID int64, payload domain.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[pageID] = payload
	return nil
}

func (s *PayloadStore) Delete(_ context.Context, pageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payloads, pageID)
	return nil
}

func (s *PayloadStore) MarkStale(_ context.Context, pageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.payloads[pageID]
	if !ok {
		return nil
	}
	payload.Stale = true
	s.payloads[pageID] = payload
	return nil
}

func (s *PayloadStore) FlushAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = map[int64]domain.Payload{}
	return nil
}

// Len reports the number of cached payloads; test helper.
func (s *PayloadStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

// EmissionsReadCache is the map-backed optimized read path.
type EmissionsReadCache struct {
	mu     sync.Mutex
	values map[int64]float64
}

func NewEmissionsReadCache() *EmissionsReadCache {
	return &EmissionsReadCache{values: map[int64]float64{}}
}

func (c *EmissionsReadCache) Get(_ context.Context, pageID int64) (float64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[pageID]
	return value, ok, nil
}

func (c *EmissionsReadCache) Set(_ context.Context, pageID int64, emissions float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[pageID] = emissions
	return nil
}

func (c *EmissionsReadCache) Delete(_ context.Context, pageID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, pageID)
	return nil
}

// SiteCache keeps the site-wide derived views keyed exactly like the Redis
// adapter so clear-all behavior is observable per key.
type SiteCache struct {
	mu          sync.Mutex
	stats       *domain.SiteStats
	heaviest    map[int][]domain.PageWeight
	untested    []domain.Page
	hasUntested bool
}

func NewSiteCache() *SiteCache {
	return &SiteCache{heaviest: map[int][]domain.PageWeight{}}
}

func (c *SiteCache) Stats(_ context.Context) (*domain.SiteStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stats == nil {
		return nil, nil
	}
	out := *c.stats
	return &out, nil
}

func (c *SiteCache) SetStats(_ context.Context, stats domain.SiteStats, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = &stats
	return nil
}

func (c *SiteCache) Heaviest(_ context.Context, limit int) ([]domain.PageWeight, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows, ok := c.heaviest[limit]
	return rows, ok, nil
}

func (c *SiteCache) SetHeaviest(_ context.Context, limit int, rows []domain.PageWeight, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.heaviest[limit] = rows
	return nil
}

func (c *SiteCache) Untested(_ context.Context) ([]domain.Page, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.untested, c.hasUntested, nil
}

func (c *SiteCache) SetUntested(_ context.Context, pages []domain.Page, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.untested = pages
	c.hasUntested = true
	return nil
}

func (c *SiteCache) ClearAll(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = nil
	c.heaviest = map[int][]domain.PageWeight{}
	c.untested = nil
	c.hasUntested = false
	return nil
}

// Empty reports whether every site-wide view is cleared; test helper.
func (c *SiteCache) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats == nil && len(c.heaviest) == 0 && !c.hasUntested
}

// RefreshLockStore simulates SETNX semantics with real expiry driven by an
// injectable clock.
type RefreshLockStore struct {
	mu    sync.Mutex
	until map[int64]time.Time
	NowFn func() time.Time
}

func NewRefreshLockStore() *RefreshLockStore {
	return &RefreshLockStore{until: map[int64]time.Time{}, NowFn: time.Now}
}

func (s *RefreshLockStore) Acquire(_ context.Context, pageID int64, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.NowFn()
	if expiry, ok := s.until[pageID]; ok && expiry.After(now) {
		return false, nil
	}
	s.until[pageID] = now.Add(ttl)
	return true, nil
}

func (s *RefreshLockStore) Release(_ context.Context, pageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.until, pageID)
	return nil
}

func (s *RefreshLockStore) Held(_ context.Context, pageID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.until[pageID]
	return ok && expiry.After(s.NowFn()), nil
}

// RefreshQueue is a slice-backed de-duplicated task queue.
type RefreshQueue struct {
	mu      sync.Mutex
	order   []int64
	pending map[int64]bool
}

func NewRefreshQueue() *RefreshQueue {
	return &RefreshQueue{pending: map[int64]bool{}}
}

func (q *RefreshQueue) Enqueue(_ context.Context, pageID int64) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending[pageID] {
		return false, nil
	}
	q.pending[pageID] = true
	q.order = append(q.order, pageID)
	return true, nil
}

func (q *RefreshQueue) Dequeue(_ context.Context) (int64, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.order) == 0 {
		return 0, false, nil
	}
	pageID := q.order[0]
	q.order = q.order[1:]
	delete(q.pending, pageID)
	return pageID, true, nil
}

func (q *RefreshQueue) Pending(_ context.Context, pageID int64) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending[pageID], nil
}

// Size reports queued task count; test helper.
func (q *RefreshQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}
