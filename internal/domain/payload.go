package domain

import "time"

// Source records where a payload's emissions value came from.
// It is informational only and never feeds staleness decisions.
type Source string

const (
	SourceAPI        Source = "api"
	SourceMeta       Source = "meta"
	SourceManual     Source = "manual"
	SourceBackground Source = "background"
)

const (
	// FreshFor is the primary staleness threshold for cached payloads.
	FreshFor = 24 * time.Hour
	// LegacyFreshFor is the scheduler's coarser safety net. It catches
	// payloads whose stale flag was never set upstream; refreshing a
	// week-old value redundantly is cheaper than serving it forever.
	LegacyFreshFor = 7 * 24 * time.Hour
	// MaxHistoryEntries caps the rolling measurement history per page.
	MaxHistoryEntries = 12
)

// Payload is the cached per-page emissions record.
type Payload struct {
	Emissions *float64 `json:"emissions"`
	PageSize  *int64   `json:"page_size,omitempty"`
	UpdatedAt int64    `json:"updated_at"`
	Source    Source   `json:"source"`
	Stale     bool     `json:"stale"`
}

// IsStale reports whether the payload must be refreshed before being
// trusted. A nil payload, an explicit stale flag, a missing timestamp and
// an age beyond FreshFor all classify as stale.
func (p *Payload) IsStale(now time.Time) bool {
	if p == nil {
		return true
	}
	if p.Stale {
		return true
	}
	if p.UpdatedAt <= 0 {
		return true
	}
	return now.Sub(time.Unix(p.UpdatedAt, 0)) > FreshFor
}

// NeedsRefresh is the scheduling-layer policy: the primary staleness check
// plus the weekly safety net. The two thresholds are kept separate on
// purpose; collapsing them would change observable refresh frequency.
func (p *Payload) NeedsRefresh(now time.Time) bool {
	if p.IsStale(now) {
		return true
	}
	return now.Sub(time.Unix(p.UpdatedAt, 0)) > LegacyFreshFor
}

// Measurement is the normalized result of one measurement-service call.
type Measurement struct {
	Emissions  float64
	PageSize   *int64
	GreenHost  bool
	Resources  map[string]float64
	MeasuredAt time.Time
}

// HistoryEntry is one point in a page's capped measurement history.
type HistoryEntry struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// PageEmissions is the durable per-page record backing the payload cache.
type PageEmissions struct {
	PageID      int64
	Emissions   float64
	PageSize    *int64
	Resources   map[string]float64
	LastUpdated time.Time
	History     []HistoryEntry
}

// AppendHistory adds a measurement point and drops the oldest entries
// beyond MaxHistoryEntries.
func (e *PageEmissions) AppendHistory(entry HistoryEntry) {
	e.History = append(e.History, entry)
	if len(e.History) > MaxHistoryEntries {
		e.History = e.History[len(e.History)-MaxHistoryEntries:]
	}
}
