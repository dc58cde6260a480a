package unit

import (
	"context"
	"testing"
	"time"

	"github.com/pixeltoplanet/carbonfooter-service/internal/adapters/memory"
	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

func TestPayloadStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.NewPayloadStore()

	got, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get empty store: %v", err)
	}
	if got != nil {
		t.Fatalf("expected miss, got %+v", got)
	}

	emissions := 2.4
	size := int64(90210)
	in := domain.Payload{Emissions: &emissions, PageSize: &size, UpdatedAt: time.Now().Unix(), Source: domain.SourceAPI}
	if err := store.Set(ctx, 1, in); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err = store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || *got.Emissions != emissions || *got.PageSize != size || got.UpdatedAt != in.UpdatedAt || got.Source != domain.SourceAPI || got.Stale {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestMarkStalePreservesTimestamp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.NewPayloadStore()

	emissions := 1.1
	updatedAt := time.Now().Add(-time.Hour).Unix()
	if err := store.Set(ctx, 5, domain.Payload{Emissions: &emissions, UpdatedAt: updatedAt, Source: domain.SourceAPI}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.MarkStale(ctx, 5); err != nil {
		t.Fatalf("mark stale: %v", err)
	}
	got, err := store.Get(ctx, 5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || !got.Stale {
		t.Fatalf("expected stale payload, got %+v", got)
	}
	if got.UpdatedAt != updatedAt {
		t.Fatalf("mark stale must preserve the timestamp: got=%d want=%d", got.UpdatedAt, updatedAt)
	}

	// Marking an absent page is a no-op, not an error.
	if err := store.MarkStale(ctx, 999); err != nil {
		t.Fatalf("mark stale absent page: %v", err)
	}
}

func TestDeleteIsolatedPerPage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.NewPayloadStore()

	a, b := 1.0, 2.0
	_ = store.Set(ctx, 1, domain.Payload{Emissions: &a, UpdatedAt: time.Now().Unix()})
	_ = store.Set(ctx, 2, domain.Payload{Emissions: &b, UpdatedAt: time.Now().Unix()})

	if err := store.Delete(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := store.Get(ctx, 1); got != nil {
		t.Fatalf("page 1 should be gone, got %+v", got)
	}
	if got, _ := store.Get(ctx, 2); got == nil || *got.Emissions != b {
		t.Fatalf("page 2 must survive the delete, got %+v", got)
	}
}

func TestRefreshLockSingleHolder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	locks := memory.NewRefreshLockStore()

	acquired, err := locks.Acquire(ctx, 3, 5*time.Minute)
	if err != nil || !acquired {
		t.Fatalf("first acquire: acquired=%v err=%v", acquired, err)
	}
	acquired, err = locks.Acquire(ctx, 3, 5*time.Minute)
	if err != nil || acquired {
		t.Fatalf("second acquire must fail while held: acquired=%v err=%v", acquired, err)
	}
	if err := locks.Release(ctx, 3); err != nil {
		t.Fatalf("release: %v", err)
	}
	acquired, err = locks.Acquire(ctx, 3, 5*time.Minute)
	if err != nil || !acquired {
		t.Fatalf("acquire after release: acquired=%v err=%v", acquired, err)
	}
}

func TestRefreshLockExpires(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	locks := memory.NewRefreshLockStore()
	current := time.Now()
	locks.NowFn = func() time.Time { return current }

	if acquired, _ := locks.Acquire(ctx, 9, 5*time.Minute); !acquired {
		t.Fatalf("first acquire failed")
	}
	current = current.Add(5*time.Minute + time.Second)
	acquired, err := locks.Acquire(ctx, 9, 5*time.Minute)
	if err != nil || !acquired {
		t.Fatalf("acquire after expiry: acquired=%v err=%v", acquired, err)
	}
}

func TestRefreshQueueDeduplicates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	queue := memory.NewRefreshQueue()

	queued, err := queue.Enqueue(ctx, 4)
	if err != nil || !queued {
		t.Fatalf("first enqueue: queued=%v err=%v", queued, err)
	}
	queued, err = queue.Enqueue(ctx, 4)
	if err != nil || queued {
		t.Fatalf("duplicate enqueue must be rejected: queued=%v err=%v", queued, err)
	}
	pageID, ok, err := queue.Dequeue(ctx)
	if err != nil || !ok || pageID != 4 {
		t.Fatalf("dequeue: id=%d ok=%v err=%v", pageID, ok, err)
	}
	if pending, _ := queue.Pending(ctx, 4); pending {
		t.Fatalf("dequeued page must no longer be pending")
	}
	queued, err = queue.Enqueue(ctx, 4)
	if err != nil || !queued {
		t.Fatalf("re-enqueue after dequeue: queued=%v err=%v", queued, err)
	}
}
