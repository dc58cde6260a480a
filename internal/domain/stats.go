package domain

// SiteStats is the derived site-wide view over all measured pages.
// It is cached in two tiers and recomputed lazily on a full miss.
type SiteStats struct {
	AverageEmissions  float64            `json:"average_emissions"`
	MeasuredPages     int64              `json:"measured_pages"`
	TotalEmissions    float64            `json:"total_emissions"`
	LastMeasuredAt    int64              `json:"last_measured_at"`
	GreenHost         bool               `json:"green_host"`
	ResourceBreakdown map[string]float64 `json:"resource_breakdown"`
}
