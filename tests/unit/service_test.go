package unit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pixeltoplanet/carbonfooter-service/internal/adapters/memory"
	"github.com/pixeltoplanet/carbonfooter-service/internal/application"
	"github.com/pixeltoplanet/carbonfooter-service/internal/contracts"
	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

type fixture struct {
	payloads    *memory.PayloadStore
	reads       *memory.EmissionsReadCache
	site        *memory.SiteCache
	locks       *memory.RefreshLockStore
	queue       *memory.RefreshQueue
	cron        *memory.CronPinger
	content     *memory.ContentRepository
	emissions   *memory.EmissionsRepository
	settings    *memory.SettingsStore
	measurement *memory.MeasurementClient
	events      *memory.EventPublisher
	service     *application.Service
}

func newFixture(cfg application.Config) *fixture {
	f := &fixture{
		payloads:    memory.NewPayloadStore(),
		reads:       memory.NewEmissionsReadCache(),
		site:        memory.NewSiteCache(),
		locks:       memory.NewRefreshLockStore(),
		queue:       memory.NewRefreshQueue(),
		cron:        memory.NewCronPinger(),
		content:     memory.NewContentRepository(),
		settings:    memory.NewSettingsStore(),
		measurement: memory.NewMeasurementClient(),
		events:      memory.NewEventPublisher(),
	}
	f.emissions = memory.NewEmissionsRepository(f.content)
	f.service = application.NewService(application.Dependencies{
		Config:        cfg,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Payloads:      f.payloads,
		EmissionsRead: f.reads,
		SiteCache:     f.site,
		Locks:         f.locks,
		Queue:         f.queue,
		Cron:          f.cron,
		Content:       f.content,
		Emissions:     f.emissions,
		Settings:      f.settings,
		Measurement:   f.measurement,
		Events:        f.events,
	})
	return f
}

func (f *fixture) seedPage(pageID int64, title string) {
	f.content.AddPage(domain.Page{
		PageID:      pageID,
		Title:       title,
		Permalink:   "http://example.com/p/" + title,
		ContentType: "page",
		Status:      "publish",
	})
}

func TestProcessPageStoresMeasurement(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(application.Config{})
	f.seedPage(42, "about")
	size := int64(12345)
	f.measurement.SetResult(42, domain.Measurement{
		Emissions: 10.5,
		PageSize:  &size,
		GreenHost: true,
		Resources: map[string]float64{"script": 4000, "image": 8000},
	})

	got, err := f.service.ProcessPage(ctx, 42)
	if err != nil {
		t.Fatalf("process page: %v", err)
	}
	if got != 10.5 {
		t.Fatalf("unexpected emissions: got=%v want=10.5", got)
	}

	calls := f.measurement.Calls()
	if len(calls) != 1 || calls[0] != "https://example.com/p/about" {
		t.Fatalf("expected one https measurement call, got %v", calls)
	}

	payload, err := f.payloads.Get(ctx, 42)
	if err != nil || payload == nil {
		t.Fatalf("payload missing after measurement: %+v err=%v", payload, err)
	}
	if *payload.Emissions != 10.5 || *payload.PageSize != size || payload.Source != domain.SourceAPI || payload.Stale {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	if value, found, _ := f.reads.Get(ctx, 42); !found || value != 10.5 {
		t.Fatalf("optimized read cache not warmed: value=%v found=%v", value, found)
	}

	record, err := f.emissions.Get(ctx, 42)
	if err != nil || record == nil {
		t.Fatalf("durable row missing: %+v err=%v", record, err)
	}
	if len(record.History) != 1 || record.History[0].Value != 10.5 {
		t.Fatalf("unexpected history: %+v", record.History)
	}

	if green, _ := f.settings.GreenHost(ctx); !green {
		t.Fatalf("green host flag not persisted")
	}

	// Measurement clears then eagerly rewarms the site aggregate.
	stats, err := f.site.Stats(ctx)
	if err != nil || stats == nil {
		t.Fatalf("stats not rewarmed: %+v err=%v", stats, err)
	}
	if stats.MeasuredPages != 1 || stats.TotalEmissions != 10.5 || !stats.GreenHost {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	events := f.events.Events()
	if len(events) != 1 || events[0].EventType != contracts.EventMeasurementCompleted {
		t.Fatalf("expected one measurement event, got %+v", events)
	}
}

func TestProcessPageCollectionDisabled(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{})
	f.seedPage(1, "home")
	f.settings.SetCollectionEnabled(false)

	if _, err := f.service.ProcessPage(context.Background(), 1); !errors.Is(err, domain.ErrCollectionDisabled) {
		t.Fatalf("expected collection disabled error, got %v", err)
	}
	if len(f.measurement.Calls()) != 0 {
		t.Fatalf("no measurement call may happen while collection is off")
	}
}

func TestProcessPageWithoutPermalink(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{})
	f.content.AddPage(domain.Page{PageID: 2, Title: "draftish", Status: "publish"})

	if _, err := f.service.ProcessPage(context.Background(), 2); !errors.Is(err, domain.ErrNoResolvableURL) {
		t.Fatalf("expected no-resolvable-url error, got %v", err)
	}
}

func TestGetPagePayloadFallsBackToReadCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(application.Config{})
	_ = f.reads.Set(ctx, 7, 3.3)

	payload, err := f.service.GetPagePayload(ctx, 7)
	if err != nil || payload == nil {
		t.Fatalf("payload: %+v err=%v", payload, err)
	}
	if *payload.Emissions != 3.3 || payload.Source != domain.SourceMeta {
		t.Fatalf("unexpected synthesized payload: %+v", payload)
	}
	if f.payloads.Len() != 1 {
		t.Fatalf("fallback hit must backfill the payload store")
	}
}

func TestGetPagePayloadFallsBackToDurableRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(application.Config{})
	measuredAt := time.Now().Add(-2 * time.Hour).UTC().Truncate(time.Second)
	_ = f.emissions.Save(ctx, domain.PageEmissions{PageID: 8, Emissions: 4.4, LastUpdated: measuredAt})

	payload, err := f.service.GetPagePayload(ctx, 8)
	if err != nil || payload == nil {
		t.Fatalf("payload: %+v err=%v", payload, err)
	}
	if *payload.Emissions != 4.4 || payload.UpdatedAt != measuredAt.Unix() || payload.Source != domain.SourceMeta {
		t.Fatalf("unexpected payload from durable row: %+v", payload)
	}

	unknown, err := f.service.GetPagePayload(ctx, 999)
	if err != nil || unknown != nil {
		t.Fatalf("unmeasured page must yield nil payload: %+v err=%v", unknown, err)
	}
}

func TestClearAllDataIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(application.Config{})
	f.seedPage(11, "contact")
	f.measurement.SetResult(11, domain.Measurement{Emissions: 1.2, GreenHost: true})
	if _, err := f.service.ProcessPage(ctx, 11); err != nil {
		t.Fatalf("process page: %v", err)
	}

	deleted, err := f.service.ClearAllData(ctx)
	if err != nil {
		t.Fatalf("clear all: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("unexpected deleted count: got=%d want=1", deleted)
	}
	if f.payloads.Len() != 0 {
		t.Fatalf("payload store must be flushed")
	}
	if !f.site.Empty() {
		t.Fatalf("every site-wide view must be cleared")
	}
	if green, _ := f.settings.GreenHost(ctx); green {
		t.Fatalf("green host flag must reset")
	}
	if mirror, _ := f.settings.StatsMirror(ctx); mirror != nil {
		t.Fatalf("stats mirror must be cleared")
	}

	deleted, err = f.service.ClearAllData(ctx)
	if err != nil || deleted != 0 {
		t.Fatalf("second clear must be a clean no-op: deleted=%d err=%v", deleted, err)
	}
}

func TestHandleContentEventInvalidatesCaches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(application.Config{})
	emissions := 2.0
	updatedAt := time.Now().Add(-time.Hour).Unix()
	_ = f.payloads.Set(ctx, 21, domain.Payload{Emissions: &emissions, UpdatedAt: updatedAt, Source: domain.SourceAPI})
	_ = f.reads.Set(ctx, 21, emissions)
	_ = f.site.SetStats(ctx, domain.SiteStats{MeasuredPages: 1}, time.Hour)

	err := f.service.HandleContentEvent(ctx, contracts.ContentEvent{
		EventType: contracts.EventContentSaved,
		PageID:    21,
		Status:    "publish",
		Public:    true,
	})
	if err != nil {
		t.Fatalf("handle content event: %v", err)
	}

	payload, _ := f.payloads.Get(ctx, 21)
	if payload == nil || !payload.Stale {
		t.Fatalf("payload must be flagged stale: %+v", payload)
	}
	if payload.UpdatedAt != updatedAt {
		t.Fatalf("stale flagging must not rewrite the timestamp")
	}
	if _, found, _ := f.reads.Get(ctx, 21); found {
		t.Fatalf("optimized read key must be dropped")
	}
	if !f.site.Empty() {
		t.Fatalf("site-wide views must be invalidated")
	}
}

func TestHandleContentEventSkipsAutosaves(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(application.Config{})
	emissions := 2.0
	_ = f.payloads.Set(ctx, 22, domain.Payload{Emissions: &emissions, UpdatedAt: time.Now().Unix()})

	for _, event := range []contracts.ContentEvent{
		{PageID: 22, Public: true, Autosave: true},
		{PageID: 22, Public: true, Revision: true},
		{PageID: 22, Public: false},
	} {
		if err := f.service.HandleContentEvent(ctx, event); err != nil {
			t.Fatalf("skippable event must not fail: %v", err)
		}
	}
	payload, _ := f.payloads.Get(ctx, 22)
	if payload == nil || payload.Stale {
		t.Fatalf("skippable events must leave the payload untouched: %+v", payload)
	}

	if err := f.service.HandleContentEvent(ctx, contracts.ContentEvent{Public: true}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("missing page id must be rejected, got %v", err)
	}
}

func TestHeaviestPagesValidatesLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(application.Config{})
	f.seedPage(31, "heavy")
	_ = f.emissions.Save(ctx, domain.PageEmissions{PageID: 31, Emissions: 9.9, LastUpdated: time.Now()})

	if _, err := f.service.HeaviestPages(ctx, 15); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("limit 15 must be rejected, got %v", err)
	}
	rows, err := f.service.HeaviestPages(ctx, 10)
	if err != nil {
		t.Fatalf("heaviest pages: %v", err)
	}
	if len(rows) != 1 || rows[0].PageID != 31 || rows[0].Title != "heavy" {
		t.Fatalf("unexpected listing: %+v", rows)
	}
	if _, found, _ := f.site.Heaviest(ctx, 10); !found {
		t.Fatalf("listing must be cached after the repo read")
	}
}

func TestUntestedPagesListsUnmeasured(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(application.Config{})
	f.seedPage(41, "measured")
	f.seedPage(42, "unmeasured")
	_ = f.emissions.Save(ctx, domain.PageEmissions{PageID: 41, Emissions: 1.0, LastUpdated: time.Now()})

	pages, err := f.service.UntestedPages(ctx)
	if err != nil {
		t.Fatalf("untested pages: %v", err)
	}
	if len(pages) != 1 || pages[0].PageID != 42 {
		t.Fatalf("unexpected untested listing: %+v", pages)
	}
}

func TestSiteStatsServedFromMirrorAfterCacheLoss(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(application.Config{})
	f.seedPage(51, "home")
	f.measurement.SetResult(51, domain.Measurement{Emissions: 5.0, GreenHost: true})
	if _, err := f.service.ProcessPage(ctx, 51); err != nil {
		t.Fatalf("process page: %v", err)
	}

	// Simulate the volatile tier evaporating; the durable mirror answers.
	if err := f.site.ClearAll(ctx); err != nil {
		t.Fatalf("clear site cache: %v", err)
	}
	stats, err := f.service.GetSiteStats(ctx)
	if err != nil {
		t.Fatalf("stats after cache loss: %v", err)
	}
	if stats.MeasuredPages != 1 || stats.TotalEmissions != 5.0 {
		t.Fatalf("unexpected mirrored stats: %+v", stats)
	}
	if rewarmed, _ := f.site.Stats(ctx); rewarmed == nil {
		t.Fatalf("mirror hit must backfill the volatile tier")
	}
}
