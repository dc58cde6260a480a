package application

import (
	"time"

	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// Actor is the verified caller identity attached to a request.
type Actor struct {
	SubjectID string
	Role      string
	RequestID string
}

// CanEdit reports whether the actor holds content-editing rights. The
// degraded-scheduler inline path is gated on this.
func (a Actor) CanEdit() bool {
	return a.Role == RoleEditor || a.Role == RoleAdmin
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Config tunes the orchestration layer.
type Config struct {
	// CronDisabled mirrors the host constant that turns the scheduled-task
	// runner off. It selects the degraded page-view paths.
	CronDisabled bool
	// RefreshLockTTL bounds how long a dead refresh attempt can block
	// retries. Generously sized relative to measurement latency; tunable.
	RefreshLockTTL  time.Duration
	StatsCacheTTL   time.Duration
	StatsMirrorTTL  time.Duration
	ListingCacheTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.RefreshLockTTL <= 0 {
		c.RefreshLockTTL = 5 * time.Minute
	}
	if c.StatsCacheTTL <= 0 {
		c.StatsCacheTTL = time.Hour
	}
	if c.StatsMirrorTTL <= 0 {
		c.StatsMirrorTTL = 12 * time.Hour
	}
	if c.ListingCacheTTL <= 0 {
		c.ListingCacheTTL = time.Hour
	}
	return c
}

// ViewDecision is the outcome of one qualifying page view.
type ViewDecision string

const (
	DecisionNotDue     ViewDecision = "not_due"
	DecisionInProgress ViewDecision = "in_progress"
	DecisionScheduled  ViewDecision = "scheduled"
	DecisionPinged     ViewDecision = "pinged"
	DecisionRefreshed  ViewDecision = "refreshed"
	DecisionFailed     ViewDecision = "failed"
)

// ViewResult carries the scheduling decision plus the last-known payload,
// so callers can render a value even while a refresh is in flight.
type ViewResult struct {
	Decision ViewDecision
	Payload  *domain.Payload
}
