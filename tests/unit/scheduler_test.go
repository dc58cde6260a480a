package unit

import (
	"context"
	"testing"
	"time"

	"github.com/pixeltoplanet/carbonfooter-service/internal/application"
	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

func stalePayload(emissions float64) domain.Payload {
	return domain.Payload{
		Emissions: &emissions,
		UpdatedAt: time.Now().Add(-25 * time.Hour).Unix(),
		Source:    domain.SourceAPI,
	}
}

func freshPayload(emissions float64) domain.Payload {
	return domain.Payload{
		Emissions: &emissions,
		UpdatedAt: time.Now().Unix(),
		Source:    domain.SourceAPI,
	}
}

func TestPageViewFreshPayloadNotDue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(application.Config{})
	_ = f.payloads.Set(ctx, 1, freshPayload(1.0))

	result, err := f.service.HandlePageView(ctx, 1, application.Actor{Role: application.RoleViewer})
	if err != nil {
		t.Fatalf("page view: %v", err)
	}
	if result.Decision != application.DecisionNotDue {
		t.Fatalf("unexpected decision: %s", result.Decision)
	}
	if result.Payload == nil || *result.Payload.Emissions != 1.0 {
		t.Fatalf("fresh payload must be returned: %+v", result.Payload)
	}
	if f.queue.Size() != 0 {
		t.Fatalf("nothing may be scheduled for a fresh payload")
	}
}

func TestPageViewSchedulesStaleRefreshOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(application.Config{})
	_ = f.payloads.Set(ctx, 2, stalePayload(1.5))

	result, err := f.service.HandlePageView(ctx, 2, application.Actor{Role: application.RoleViewer})
	if err != nil {
		t.Fatalf("first view: %v", err)
	}
	if result.Decision != application.DecisionScheduled {
		t.Fatalf("first view must schedule: %s", result.Decision)
	}
	if result.Payload == nil {
		t.Fatalf("last-known payload must still be returned while a refresh is queued")
	}
	if f.queue.Size() != 1 {
		t.Fatalf("queue size: got=%d want=1", f.queue.Size())
	}

	// A second view during the same window piggybacks on the pending task.
	result, err = f.service.HandlePageView(ctx, 2, application.Actor{Role: application.RoleViewer})
	if err != nil {
		t.Fatalf("second view: %v", err)
	}
	if result.Decision != application.DecisionInProgress {
		t.Fatalf("second view must not re-schedule: %s", result.Decision)
	}
	if f.queue.Size() != 1 {
		t.Fatalf("duplicate scheduling: queue size=%d", f.queue.Size())
	}
}

func TestPageViewMissingPayloadSchedules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(application.Config{})

	result, err := f.service.HandlePageView(ctx, 3, application.Actor{Role: application.RoleViewer})
	if err != nil {
		t.Fatalf("page view: %v", err)
	}
	if result.Decision != application.DecisionScheduled {
		t.Fatalf("an unmeasured page must be scheduled: %s", result.Decision)
	}
	if result.Payload != nil {
		t.Fatalf("no payload exists yet: %+v", result.Payload)
	}
}

func TestScheduledRefreshMeasuresAndReleasesLock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(application.Config{})
	f.seedPage(4, "pricing")
	f.measurement.SetResult(4, domain.Measurement{Emissions: 0.7, GreenHost: true})
	_ = f.payloads.Set(ctx, 4, stalePayload(2.0))

	if result, _ := f.service.HandlePageView(ctx, 4, application.Actor{Role: application.RoleViewer}); result.Decision != application.DecisionScheduled {
		t.Fatalf("expected scheduled, got %s", result.Decision)
	}

	pageID, ok, err := f.queue.Dequeue(ctx)
	if err != nil || !ok || pageID != 4 {
		t.Fatalf("dequeue: id=%d ok=%v err=%v", pageID, ok, err)
	}
	if err := f.service.RunScheduledRefresh(ctx, pageID); err != nil {
		t.Fatalf("run refresh: %v", err)
	}

	payload, _ := f.payloads.Get(ctx, 4)
	if payload == nil || *payload.Emissions != 0.7 || payload.Source != domain.SourceBackground || payload.Stale {
		t.Fatalf("refresh must write a fresh background payload: %+v", payload)
	}
	if held, _ := f.locks.Held(ctx, 4); held {
		t.Fatalf("refresh must release the lock")
	}
	if at, _ := f.settings.LastProcessedAt(ctx); at.IsZero() {
		t.Fatalf("last-processed marker must advance on success")
	}
}

func TestScheduledRefreshFailureReleasesLock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(application.Config{})
	f.seedPage(5, "blog")
	f.measurement.FailAll(true)
	if acquired, _ := f.locks.Acquire(ctx, 5, time.Minute); !acquired {
		t.Fatalf("setup acquire failed")
	}

	if err := f.service.RunScheduledRefresh(ctx, 5); err == nil {
		t.Fatalf("expected measurement failure")
	}
	if held, _ := f.locks.Held(ctx, 5); held {
		t.Fatalf("lock must be released even on failure")
	}
	if at, _ := f.settings.LastProcessedAt(ctx); !at.IsZero() {
		t.Fatalf("last-processed marker must not advance on failure")
	}
}

func TestDegradedViewEditorRefreshesInline(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(application.Config{CronDisabled: true})
	f.seedPage(6, "team")
	f.measurement.SetResult(6, domain.Measurement{Emissions: 1.9})
	_ = f.payloads.Set(ctx, 6, stalePayload(3.0))

	result, err := f.service.HandlePageView(ctx, 6, application.Actor{SubjectID: "e1", Role: application.RoleEditor})
	if err != nil {
		t.Fatalf("degraded view: %v", err)
	}
	if result.Decision != application.DecisionRefreshed {
		t.Fatalf("editor view must refresh inline: %s", result.Decision)
	}
	if result.Payload == nil || *result.Payload.Emissions != 1.9 {
		t.Fatalf("refreshed payload must be returned: %+v", result.Payload)
	}
	if held, _ := f.locks.Held(ctx, 6); held {
		t.Fatalf("inline refresh must release the lock")
	}
	if f.cron.Pings() != 0 {
		t.Fatalf("no cron nudge on the inline path")
	}
}

func TestDegradedViewEditorFailureReportsFailed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(application.Config{CronDisabled: true})
	f.seedPage(7, "careers")
	f.measurement.FailAll(true)
	_ = f.payloads.Set(ctx, 7, stalePayload(3.0))

	result, err := f.service.HandlePageView(ctx, 7, application.Actor{SubjectID: "e1", Role: application.RoleEditor})
	if err != nil {
		t.Fatalf("degraded view must not surface the measurement error: %v", err)
	}
	if result.Decision != application.DecisionFailed {
		t.Fatalf("unexpected decision: %s", result.Decision)
	}
	if result.Payload == nil {
		t.Fatalf("the stale payload must survive a failed refresh")
	}
	if held, _ := f.locks.Held(ctx, 7); held {
		t.Fatalf("lock must be released after the failed inline refresh")
	}
}

func TestDegradedViewAnonymousPingsCron(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(application.Config{CronDisabled: true})
	_ = f.payloads.Set(ctx, 8, stalePayload(2.2))

	result, err := f.service.HandlePageView(ctx, 8, application.Actor{Role: application.RoleViewer})
	if err != nil {
		t.Fatalf("degraded view: %v", err)
	}
	if result.Decision != application.DecisionPinged {
		t.Fatalf("anonymous viewer must only nudge the runner: %s", result.Decision)
	}
	if f.cron.Pings() != 1 {
		t.Fatalf("expected exactly one cron nudge, got %d", f.cron.Pings())
	}
	// The nudged runner owns the attempt; the lock stays held until its TTL.
	if held, _ := f.locks.Held(ctx, 8); !held {
		t.Fatalf("lock must stay held after the nudge")
	}
	if len(f.measurement.Calls()) != 0 {
		t.Fatalf("no inline measurement for anonymous viewers")
	}

	// Follow-up views while the lock is held neither refresh nor re-ping.
	result, err = f.service.HandlePageView(ctx, 8, application.Actor{Role: application.RoleViewer})
	if err != nil {
		t.Fatalf("second degraded view: %v", err)
	}
	if result.Decision != application.DecisionInProgress {
		t.Fatalf("unexpected decision on held lock: %s", result.Decision)
	}
	if f.cron.Pings() != 1 {
		t.Fatalf("duplicate cron nudge")
	}
}
