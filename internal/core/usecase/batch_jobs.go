package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
	"github.com/kirillkom/exoplanet-triage/internal/core/ports"
)

// BatchJobUseCase stores uploads, queues them, and lets the worker process them later.
type BatchJobUseCase struct {
	repo    ports.BatchJobRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	ingest  ports.BatchIngestor
	now     func() time.Time
}

func NewBatchJobUseCase(
	repo ports.BatchJobRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	ingest ports.BatchIngestor,
) *BatchJobUseCase {
	return &BatchJobUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
		ingest:  ingest,
		now:     time.Now,
	}
}

func (uc *BatchJobUseCase) Schedule(
	ctx context.Context,
	identity, filename, mimeType string,
	body io.Reader,
	source domain.DataSource,
) (*domain.BatchJob, error) {
	if source == "" {
		source = domain.DataSourceKepler
	}
	if !source.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "schedule batch", fmt.Errorf("source %q", source))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := uc.now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	job := &domain.BatchJob{
		ID:          id,
		UserID:      identity,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Source:      source,
		Status:      domain.BatchStatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create batch job: %w", err)
	}
	if err := uc.queue.PublishBatchQueued(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("publish batch event: %w", err)
	}
	return job, nil
}

func (uc *BatchJobUseCase) GetJob(ctx context.Context, id string) (*domain.BatchJob, error) {
	return uc.repo.GetByID(ctx, id)
}

// finalizeTimeout bounds the result and status writes that close out a job.
const finalizeTimeout = 10 * time.Second

// ProcessJob runs a queued job in a fresh session owned by the uploader.
// Rows are persisted only when the job has an owner. The closing writes run on
// a detached context so a cancelled or timed-out job still ends as failed with
// its partial report.
func (uc *BatchJobUseCase) ProcessJob(ctx context.Context, jobID string) error {
	if err := uc.repo.UpdateStatus(ctx, jobID, domain.BatchStatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	report, err := uc.run(ctx, jobID)

	finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	if report != nil {
		if saveErr := uc.repo.SaveResult(finalCtx, jobID, *report); saveErr != nil {
			err = errors.Join(err, fmt.Errorf("save batch result: %w", saveErr))
		}
	}
	if err != nil {
		if failErr := uc.repo.UpdateStatus(finalCtx, jobID, domain.BatchStatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		slog.Warn("batch_job_failed", "job_id", jobID, "error", err)
		return err
	}

	if err := uc.repo.UpdateStatus(finalCtx, jobID, domain.BatchStatusDone, ""); err != nil {
		return fmt.Errorf("set status=done: %w", err)
	}
	slog.Info("batch_job_done", "job_id", jobID, "rows", report.Processed, "fallback", report.FallbackLabels, "persisted", report.Persisted)
	return nil
}

func (uc *BatchJobUseCase) run(ctx context.Context, jobID string) (*domain.BatchReport, error) {
	job, err := uc.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch batch job: %w", err)
	}

	body, err := uc.storage.Open(ctx, job.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer body.Close()

	session := domain.NewSession(job.UserID)
	opts := domain.BatchOptions{Persist: !session.Anonymous(), Source: job.Source}
	return uc.ingest.IngestUpload(ctx, session, job.Filename, job.MimeType, body, opts)
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "_" {
		return "upload.csv"
	}
	return base
}
