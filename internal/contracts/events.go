package contracts

// Event types consumed from the content bus and emitted by this service.
const (
	EventContentSaved         = "content.saved"
	EventContentStatusChanged = "content.status_changed"
	EventMeasurementCompleted = "emissions.measurement.completed"
)

// ContentEvent is the envelope published by the content platform whenever a
// page is saved or transitions status.
type ContentEvent struct {
	EventType   string `json:"event_type"`
	PageID      int64  `json:"page_id"`
	ContentType string `json:"content_type"`
	Status      string `json:"status"`
	OldStatus   string `json:"old_status,omitempty"`
	Autosave    bool   `json:"autosave"`
	Revision    bool   `json:"revision"`
	Public      bool   `json:"public"`
	OccurredAt  string `json:"occurred_at"`
}

// MeasurementCompletedEvent announces a successful measurement.
type MeasurementCompletedEvent struct {
	PageID     int64   `json:"page_id"`
	Emissions  float64 `json:"emissions"`
	GreenHost  bool    `json:"green_host"`
	Source     string  `json:"source"`
	MeasuredAt string  `json:"measured_at"`
}
