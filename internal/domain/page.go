package domain

import "time"

// Page is a content item whose public URL can be measured.
type Page struct {
	PageID      int64
	Title       string
	Permalink   string
	ContentType string
	Status      string
	UpdatedAt   time.Time
}

// Published reports whether the page is publicly reachable and therefore
// eligible for measurement.
func (p Page) Published() bool {
	return p.Status == "publish"
}

// PageWeight is one row of the heaviest-pages listing.
type PageWeight struct {
	PageID    int64   `json:"page_id"`
	Title     string  `json:"title"`
	Emissions float64 `json:"emissions"`
	PageSize  *int64  `json:"page_size,omitempty"`
}

// ExportEntry is the serialized form of one page in a bulk export.
type ExportEntry struct {
	ID               int64          `json:"id"`
	Title            string         `json:"title"`
	CurrentEmissions *float64       `json:"current_emissions"`
	History          []HistoryEntry `json:"history"`
}
