package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

// ContentRepository is a map-backed pages table.
type ContentRepository struct {
	mu    sync.Mutex
	pages map[int64]domain.Page
}

func NewContentRepository() *ContentRepository {
	return &ContentRepository{pages: map[int64]domain.Page{}}
}

// AddPage seeds a page; test helper.
func (r *ContentRepository) AddPage(page domain.Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[page.PageID] = page
}

func (r *ContentRepository) PageByID(_ context.Context, pageID int64) (*domain.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	page, ok := r.pages[pageID]
	if !ok {
		return nil, fmt.Errorf("%w: page %d", domain.ErrNotFound, pageID)
	}
	out := page
	return &out, nil
}

func (r *ContentRepository) PermalinkByID(ctx context.Context, pageID int64) (string, error) {
	page, err := r.PageByID(ctx, pageID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(page.Permalink) == "" {
		return "", fmt.Errorf("%w: page %d", domain.ErrNoResolvableURL, pageID)
	}
	return page.Permalink, nil
}

func (r *ContentRepository) ListPublished(_ context.Context) ([]domain.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Page, 0, len(r.pages))
	for _, page := range r.pages {
		if page.Published() {
			out = append(out, page)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PageID < out[j].PageID })
	return out, nil
}

// EmissionsRepository is a map-backed durable emissions store. It shares
// the content repository so listings and exports can resolve titles.
type EmissionsRepository struct {
	mu      sync.Mutex
	records map[int64]domain.PageEmissions
	content *ContentRepository
}

func NewEmissionsRepository(content *ContentRepository) *EmissionsRepository {
	return &EmissionsRepository{records: map[int64]domain.PageEmissions{}, content: content}
}

func (r *EmissionsRepository) Get(_ context.Context, pageID int64) (*domain.PageEmissions, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[pageID]
	if !ok {
		return nil, nil
	}
	out := record
	return &out, nil
}

func (r *EmissionsRepository) Save(_ context.Context, record domain.PageEmissions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.PageID] = record
	return nil
}

func (r *EmissionsRepository) DeleteAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := int64(len(r.records))
	r.records = map[int64]domain.PageEmissions{}
	return deleted, nil
}

func (r *EmissionsRepository) Aggregate(_ context.Context) (*domain.SiteStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := domain.SiteStats{ResourceBreakdown: map[string]float64{}}
	var latest time.Time
	for _, record := range r.records {
		stats.MeasuredPages++
		stats.TotalEmissions += record.Emissions
		if record.LastUpdated.After(latest) {
			latest = record.LastUpdated
		}
		for kind, bytes := range record.Resources {
			stats.ResourceBreakdown[kind] += bytes
		}
	}
	if stats.MeasuredPages > 0 {
		stats.AverageEmissions = stats.TotalEmissions / float64(stats.MeasuredPages)
		stats.LastMeasuredAt = latest.Unix()
	}
	return &stats, nil
}

func (r *EmissionsRepository) Heaviest(_ context.Context, limit int) ([]domain.PageWeight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.PageWeight, 0, len(r.records))
	for pageID, record := range r.records {
		row := domain.PageWeight{PageID: pageID, Emissions: record.Emissions, PageSize: record.PageSize}
		if page, ok := r.content.pages[pageID]; ok {
			row.Title = page.Title
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Emissions > out[j].Emissions })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *EmissionsRepository) Untested(ctx context.Context) ([]domain.Page, error) {
	pages, err := r.content.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Page, 0, len(pages))
	for _, page := range pages {
		if _, measured := r.records[page.PageID]; !measured {
			out = append(out, page)
		}
	}
	return out, nil
}

func (r *EmissionsRepository) Export(_ context.Context) ([]domain.ExportEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ExportEntry, 0, len(r.records))
	for pageID, record := range r.records {
		emissions := record.Emissions
		entry := domain.ExportEntry{ID: pageID, CurrentEmissions: &emissions, History: append([]domain.HistoryEntry{}, record.History...)}
		if page, ok := r.content.pages[pageID]; ok {
			entry.Title = page.Title
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count reports the number of durable rows; test helper.
func (r *EmissionsRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// SettingsStore is a map-backed settings surface with an expiring stats
// mirror.
type SettingsStore struct {
	mu                sync.Mutex
	collectionEnabled bool
	greenHost         bool
	lastProcessedAt   time.Time
	mirror            *domain.SiteStats
	mirrorExpiresAt   time.Time
	NowFn             func() time.Time
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{collectionEnabled: true, NowFn: time.Now}
}

func (s *SettingsStore) SetCollectionEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collectionEnabled = enabled
}

func (s *SettingsStore) CollectionEnabled(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collectionEnabled, nil
}

func (s *SettingsStore) GreenHost(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.greenHost, nil
}

func (s *SettingsStore) SetGreenHost(_ context.Context, green bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.greenHost = green
	return nil
}

func (s *SettingsStore) LastProcessedAt(_ context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastProcessedAt, nil
}

func (s *SettingsStore) SetLastProcessedAt(_ context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastProcessedAt = at
	return nil
}

func (s *SettingsStore) StatsMirror(_ context.Context) (*domain.SiteStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mirror == nil || !s.mirrorExpiresAt.After(s.NowFn()) {
		return nil, nil
	}
	out := *s.mirror
	return &out, nil
}

func (s *SettingsStore) SetStatsMirror(_ context.Context, stats domain.SiteStats, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = &stats
	s.mirrorExpiresAt = s.NowFn().Add(ttl)
	return nil
}

func (s *SettingsStore) ClearStatsMirror(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = nil
	return nil
}
