package domain

import "time"

type BatchStatus string

const (
	BatchStatusQueued     BatchStatus = "queued"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusDone       BatchStatus = "done"
	BatchStatusFailed     BatchStatus = "failed"
)

// BatchReport summarizes one run of the batch ingestion driver.
type BatchReport struct {
	Processed      int            `json:"processed"`
	RemoteLabels   int            `json:"remote_labels"`
	FallbackLabels int            `json:"fallback_labels"`
	Enriched       int            `json:"enriched"`
	Persisted      int            `json:"persisted"`
	Unpersisted    int            `json:"unpersisted"`
	Entries        []HistoryEntry `json:"entries"`
	// ShowResults tells the caller the batch finished and results should be brought into view.
	ShowResults bool `json:"show_results"`
}

// BatchJob tracks an uploaded file processed asynchronously by the worker.
type BatchJob struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id,omitempty"`
	Filename    string      `json:"filename"`
	MimeType    string      `json:"mime_type"`
	StoragePath string      `json:"storage_path"`
	Source      DataSource  `json:"source"`
	Status      BatchStatus `json:"status"`
	Processed   int         `json:"processed"`
	Fallbacks   int         `json:"fallbacks"`
	Persisted   int         `json:"persisted"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type BatchOptions struct {
	// Persist also stores mappable rows as predictions for the session identity.
	Persist bool
	Source  DataSource
}
