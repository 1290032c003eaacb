package ports

import (
	"context"
	"io"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
)

// RecordClassifier is the inbound contract for classifying one record into a session ledger.
type RecordClassifier interface {
	Classify(ctx context.Context, session *domain.Session, record domain.FeatureRecord) (domain.HistoryEntry, error)
}

// BatchIngestor is the inbound contract for bulk uploads.
type BatchIngestor interface {
	Run(ctx context.Context, session *domain.Session, records []domain.FeatureRecord, opts domain.BatchOptions) (*domain.BatchReport, error)
	IngestUpload(ctx context.Context, session *domain.Session, filename, mimeType string, body io.Reader, opts domain.BatchOptions) (*domain.BatchReport, error)
}

// BatchScheduler queues uploads for the asynchronous worker and reports job state.
type BatchScheduler interface {
	Schedule(ctx context.Context, identity, filename, mimeType string, body io.Reader, source domain.DataSource) (*domain.BatchJob, error)
	GetJob(ctx context.Context, id string) (*domain.BatchJob, error)
}

// BatchJobProcessor runs one queued batch job.
type BatchJobProcessor interface {
	ProcessJob(ctx context.Context, jobID string) error
}

// PredictionService owns persisted predictions. Writes require an identity; reads degrade to empty.
type PredictionService interface {
	Create(ctx context.Context, identity string, p domain.Prediction) (string, error)
	BatchCreate(ctx context.Context, identity string, ps []domain.Prediction) ([]string, error)
	List(ctx context.Context, identity string, limit int) ([]domain.Prediction, error)
}

// StatsReader computes per-identity aggregate statistics.
type StatsReader interface {
	Stats(ctx context.Context, identity string) (domain.PredictionStats, error)
}

// ModelMetricsCatalog exposes versioned model metrics snapshots.
type ModelMetricsCatalog interface {
	Latest(ctx context.Context) (domain.ModelMetrics, error)
	All(ctx context.Context) ([]domain.ModelMetrics, error)
	Record(ctx context.Context, m domain.ModelMetrics) (string, error)
}

// SessionProvider resolves the per-session context object.
type SessionProvider interface {
	Get(id string) (*domain.Session, bool)
	Create(identity string) *domain.Session
}
