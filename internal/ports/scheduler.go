package ports

import "context"

// RefreshQueue holds one-shot refresh tasks, de-duplicated per page.
type RefreshQueue interface {
	// Enqueue returns false when a task for the page is already pending.
	Enqueue(ctx context.Context, pageID int64) (bool, error)
	// Dequeue pops the next pending page id; ok is false on an empty queue.
	Dequeue(ctx context.Context) (pageID int64, ok bool, err error)
	Pending(ctx context.Context, pageID int64) (bool, error)
}

// CronPinger nudges the host's scheduled-task runner with a fire-and-forget
// request. It is a best-effort wake-up signal: near-zero timeout, response
// ignored, never an error to the caller.
type CronPinger interface {
	Ping(ctx context.Context)
}
