package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
)

type BatchJobRepository struct {
	db *sql.DB
}

func NewBatchJobRepository(db *sql.DB) *BatchJobRepository {
	return &BatchJobRepository{db: db}
}

func (r *BatchJobRepository) Create(ctx context.Context, job *domain.BatchJob) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO batch_jobs (
	id, user_id, filename, mime_type, storage_path, source, status, processed, fallbacks, persisted, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		job.ID, nullString(job.UserID), job.Filename, job.MimeType, job.StoragePath, string(job.Source), string(job.Status),
		job.Processed, job.Fallbacks, job.Persisted, nullString(job.Error), job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch job: %w", err)
	}
	return nil
}

func (r *BatchJobRepository) GetByID(ctx context.Context, id string) (*domain.BatchJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, filename, mime_type, storage_path, source, status, processed, fallbacks, persisted, error_message, created_at, updated_at
FROM batch_jobs
WHERE id = $1
`, id)

	var (
		job    domain.BatchJob
		userID sql.NullString
		errMsg sql.NullString
		source string
		status string
	)
	err := row.Scan(
		&job.ID, &userID, &job.Filename, &job.MimeType, &job.StoragePath, &source, &status,
		&job.Processed, &job.Fallbacks, &job.Persisted, &errMsg, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get batch job", fmt.Errorf("batch job %s", id))
		}
		return nil, fmt.Errorf("scan batch job: %w", err)
	}
	job.UserID = userID.String
	job.Error = errMsg.String
	job.Source = domain.DataSource(source)
	job.Status = domain.BatchStatus(status)
	return &job, nil
}

func (r *BatchJobRepository) UpdateStatus(ctx context.Context, id string, status domain.BatchStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE batch_jobs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), nullString(errMessage), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update batch job status: %w", err)
	}
	return expectAffected(res, "update batch job status", id)
}

func (r *BatchJobRepository) SaveResult(ctx context.Context, id string, report domain.BatchReport) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE batch_jobs
SET processed = $2, fallbacks = $3, persisted = $4, updated_at = $5
WHERE id = $1
`, id, report.Processed, report.FallbackLabels, report.Persisted, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save batch result: %w", err)
	}
	return expectAffected(res, "save batch result", id)
}

func expectAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("batch job %s", id))
	}
	return nil
}
