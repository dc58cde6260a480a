package contracts

type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type PayloadResponse struct {
	PageID    int64    `json:"page_id"`
	Emissions *float64 `json:"emissions"`
	PageSize  *int64   `json:"page_size,omitempty"`
	UpdatedAt int64    `json:"updated_at"`
	Source    string   `json:"source"`
	Stale     bool     `json:"stale"`
}

type MeasureResponse struct {
	PageID    int64   `json:"page_id"`
	Emissions float64 `json:"emissions"`
}

type PageViewResponse struct {
	PageID   int64            `json:"page_id"`
	Decision string           `json:"decision"`
	Payload  *PayloadResponse `json:"payload,omitempty"`
}

type SiteStatsResponse struct {
	AverageEmissions  float64            `json:"average_emissions"`
	MeasuredPages     int64              `json:"measured_pages"`
	TotalEmissions    float64            `json:"total_emissions"`
	LastMeasuredAt    string             `json:"last_measured_at,omitempty"`
	GreenHost         bool               `json:"green_host"`
	ResourceBreakdown map[string]float64 `json:"resource_breakdown,omitempty"`
}

type PageWeightResponse struct {
	PageID    int64   `json:"page_id"`
	Title     string  `json:"title"`
	Emissions float64 `json:"emissions"`
	PageSize  *int64  `json:"page_size,omitempty"`
}

type UntestedPageResponse struct {
	PageID int64  `json:"page_id"`
	Title  string `json:"title"`
}

type ClearDataResponse struct {
	DeletedEntries int64 `json:"deleted_entries"`
}

type ExportEntryResponse struct {
	ID               int64                `json:"id"`
	Title            string               `json:"title"`
	CurrentEmissions *float64             `json:"current_emissions"`
	History          []ExportHistoryEntry `json:"history"`
}

type ExportHistoryEntry struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}
