package ports

import (
	"context"
	"time"

	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

// ContentRepository reads the content items whose pages get measured.
type ContentRepository interface {
	PageByID(ctx context.Context, pageID int64) (*domain.Page, error)
	// PermalinkByID resolves the canonical public URL for a page.
	// Returns domain.ErrNoResolvableURL when none exists.
	PermalinkByID(ctx context.Context, pageID int64) (string, error)
	ListPublished(ctx context.Context) ([]domain.Page, error)
}

// EmissionsRepository is the durable per-page emissions store.
type EmissionsRepository interface {
	Get(ctx context.Context, pageID int64) (*domain.PageEmissions, error)
	// Save overwrites the current fields and appends to the capped history.
	Save(ctx context.Context, record domain.PageEmissions) error
	// DeleteAll removes every emissions row and returns the count for
	// user-facing confirmation.
	DeleteAll(ctx context.Context) (int64, error)
	// Aggregate computes the site-wide stats from all rows. The green-host
	// flag is filled in by the caller from settings.
	Aggregate(ctx context.Context) (*domain.SiteStats, error)
	Heaviest(ctx context.Context, limit int) ([]domain.PageWeight, error)
	Untested(ctx context.Context) ([]domain.Page, error)
	Export(ctx context.Context) ([]domain.ExportEntry, error)
}

// SettingsStore is the site-wide key-value settings surface, including the
// longer-lived durable mirror of the aggregate stats.
type SettingsStore interface {
	CollectionEnabled(ctx context.Context) (bool, error)
	GreenHost(ctx context.Context) (bool, error)
	SetGreenHost(ctx context.Context, green bool) error
	LastProcessedAt(ctx context.Context) (time.Time, error)
	SetLastProcessedAt(ctx context.Context, at time.Time) error
	// StatsMirror returns nil when absent or past its stored expiry.
	StatsMirror(ctx context.Context) (*domain.SiteStats, error)
	SetStatsMirror(ctx context.Context, stats domain.SiteStats, ttl time.Duration) error
	ClearStatsMirror(ctx context.Context) error
}
