package ports

import (
	"context"
	"time"

	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

// PayloadStore is the volatile per-page cache tier. Writes carry a fixed
// TTL; durable persistence is the repository's concern, never the store's.
type PayloadStore interface {
	Get(ctx context.Context, pageID int64) (*domain.Payload, error)
	Set(ctx context.Context, pageID int64, payload domain.Payload) error
	Delete(ctx context.Context, pageID int64) error
	// MarkStale flips only the stale flag, preserving every other field
	// (especially UpdatedAt, so age diagnostics stay accurate). No-op when
	// no entry exists.
	MarkStale(ctx context.Context, pageID int64) error
	// FlushAll drops every per-page entry, including optimized read keys.
	// Used by the bulk clear operation only.
	FlushAll(ctx context.Context) error
}

// EmissionsReadCache is the optimized fast-read path for a page's current
// emissions value, separate from the full payload entry.
type EmissionsReadCache interface {
	Get(ctx context.Context, pageID int64) (float64, bool, error)
	Set(ctx context.Context, pageID int64, emissions float64) error
	Delete(ctx context.Context, pageID int64) error
}

// SiteCache holds the site-wide derived views: aggregate stats, the
// heaviest-page listings at the known sizes and the untested-pages listing.
type SiteCache interface {
	Stats(ctx context.Context) (*domain.SiteStats, error)
	SetStats(ctx context.Context, stats domain.SiteStats, ttl time.Duration) error
	Heaviest(ctx context.Context, limit int) ([]domain.PageWeight, bool, error)
	SetHeaviest(ctx context.Context, limit int, rows []domain.PageWeight, ttl time.Duration) error
	Untested(ctx context.Context) ([]domain.Page, bool, error)
	SetUntested(ctx context.Context, pages []domain.Page, ttl time.Duration) error
	// ClearAll drops exactly the enumerable site-wide keys: the stats key,
	// the heaviest listings at sizes 10/20/50 and the untested listing.
	// Per-page payloads are never touched here.
	ClearAll(ctx context.Context) error
}

// RefreshLockStore de-duplicates concurrent refresh attempts per page.
// The lock is advisory and self-heals via TTL expiry when a holder dies.
type RefreshLockStore interface {
	// Acquire returns false when the lock is already held.
	Acquire(ctx context.Context, pageID int64, ttl time.Duration) (bool, error)
	Release(ctx context.Context, pageID int64) error
	Held(ctx context.Context, pageID int64) (bool, error)
}
