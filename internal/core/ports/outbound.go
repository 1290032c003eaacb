package ports

import (
	"context"
	"io"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
)

// RemoteClassifier talks to the model service. Any error means the response is unusable.
type RemoteClassifier interface {
	Classify(ctx context.Context, record domain.FeatureRecord) (domain.ClassificationResult, error)
	Enrich(ctx context.Context, record domain.FeatureRecord) (domain.Enrichment, error)
}

// PredictionRepository persists predictions. InsertMany is not transactional.
type PredictionRepository interface {
	Insert(ctx context.Context, p *domain.Prediction) error
	InsertMany(ctx context.Context, ps []domain.Prediction) ([]string, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Prediction, error)
	ListAllByUser(ctx context.Context, userID string) ([]domain.Prediction, error)
}

// ModelMetricsRepository stores append-only model metrics snapshots.
type ModelMetricsRepository interface {
	Insert(ctx context.Context, m *domain.ModelMetrics) error
	Latest(ctx context.Context) (*domain.ModelMetrics, error)
	ListAll(ctx context.Context) ([]domain.ModelMetrics, error)
}

// BatchJobRepository persists asynchronous batch job state.
type BatchJobRepository interface {
	Create(ctx context.Context, job *domain.BatchJob) error
	GetByID(ctx context.Context, id string) (*domain.BatchJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.BatchStatus, errMessage string) error
	SaveResult(ctx context.Context, id string, report domain.BatchReport) error
}

// ObjectStorage stores uploaded source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes batch job events.
type MessageQueue interface {
	PublishBatchQueued(ctx context.Context, jobID string) error
	SubscribeBatchQueued(ctx context.Context, handler func(context.Context, string) error) error
}

// RecordParser normalizes an uploaded file into feature records.
type RecordParser interface {
	Parse(filename, mimeType string, body io.Reader) ([]domain.FeatureRecord, error)
}

// ClassificationObserver receives pipeline outcomes for metrics.
type ClassificationObserver interface {
	ObserveClassification(source domain.ResultSource)
	ObserveEnrichment(outcome string)
	ObserveBatch(rows int)
}
