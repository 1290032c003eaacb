package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
)

type jobRepoFake struct {
	jobs     map[string]*domain.BatchJob
	statuses []domain.BatchStatus
	errMsg   string
	report   *domain.BatchReport
}

func newJobRepoFake() *jobRepoFake {
	return &jobRepoFake{jobs: map[string]*domain.BatchJob{}}
}

func (f *jobRepoFake) Create(_ context.Context, job *domain.BatchJob) error {
	copyJob := *job
	f.jobs[job.ID] = &copyJob
	return nil
}

func (f *jobRepoFake) GetByID(_ context.Context, id string) (*domain.BatchJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get batch job", errors.New(id))
	}
	copyJob := *job
	return &copyJob, nil
}

func (f *jobRepoFake) UpdateStatus(ctx context.Context, _ string, status domain.BatchStatus, errMessage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.statuses = append(f.statuses, status)
	f.errMsg = errMessage
	return nil
}

func (f *jobRepoFake) SaveResult(ctx context.Context, _ string, report domain.BatchReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.report = &report
	return nil
}

type storageFake struct {
	files map[string]string
	err   error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.files == nil {
		f.files = map[string]string{}
	}
	f.files[key] = string(raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.files[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type queueFake struct {
	jobID string
	err   error
}

func (f *queueFake) PublishBatchQueued(_ context.Context, jobID string) error {
	if f.err != nil {
		return f.err
	}
	f.jobID = jobID
	return nil
}

func (f *queueFake) SubscribeBatchQueued(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

type ingestorFake struct {
	session *domain.Session
	opts    domain.BatchOptions
	body    string
	report  *domain.BatchReport
	err     error
}

func (f *ingestorFake) Run(context.Context, *domain.Session, []domain.FeatureRecord, domain.BatchOptions) (*domain.BatchReport, error) {
	return nil, errors.New("not implemented")
}

func (f *ingestorFake) IngestUpload(_ context.Context, session *domain.Session, _, _ string, body io.Reader, opts domain.BatchOptions) (*domain.BatchReport, error) {
	raw, _ := io.ReadAll(body)
	f.session = session
	f.opts = opts
	f.body = string(raw)
	return f.report, f.err
}

func TestScheduleStoresAndQueues(t *testing.T) {
	repo := newJobRepoFake()
	storage := &storageFake{}
	queue := &queueFake{}
	uc := NewBatchJobUseCase(repo, storage, queue, &ingestorFake{})

	job, err := uc.Schedule(context.Background(), "user-1", "koi table 1.csv", "text/csv", bytes.NewBufferString("a\n1"), "")
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if job.Status != domain.BatchStatusQueued || job.Source != domain.DataSourceKepler {
		t.Fatalf("unexpected job: %+v", job)
	}
	if queue.jobID != job.ID {
		t.Fatalf("expected queued job id %s, got %s", job.ID, queue.jobID)
	}
	if !strings.HasSuffix(job.StoragePath, "_koi_table_1.csv") {
		t.Fatalf("expected sanitized key suffix, got %s", job.StoragePath)
	}
	if storage.files[job.StoragePath] != "a\n1" {
		t.Fatalf("expected stored upload body")
	}
	if _, ok := repo.jobs[job.ID]; !ok {
		t.Fatalf("expected job metadata")
	}
}

func TestScheduleQueueError(t *testing.T) {
	uc := NewBatchJobUseCase(newJobRepoFake(), &storageFake{}, &queueFake{err: errors.New("queue down")}, &ingestorFake{})

	_, err := uc.Schedule(context.Background(), "", "rows.csv", "text/csv", bytes.NewBufferString("a"), domain.DataSourceK2)
	if err == nil || !strings.Contains(err.Error(), "publish batch event") {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestScheduleRejectsUnknownSource(t *testing.T) {
	uc := NewBatchJobUseCase(newJobRepoFake(), &storageFake{}, &queueFake{}, &ingestorFake{})

	_, err := uc.Schedule(context.Background(), "", "rows.csv", "text/csv", bytes.NewBufferString("a"), "HUBBLE")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestProcessJobPersistsForOwner(t *testing.T) {
	repo := newJobRepoFake()
	storage := &storageFake{}
	ingestor := &ingestorFake{report: &domain.BatchReport{Processed: 2, Persisted: 2}}
	uc := NewBatchJobUseCase(repo, storage, &queueFake{}, ingestor)

	job, err := uc.Schedule(context.Background(), "user-1", "rows.csv", "text/csv", bytes.NewBufferString("a\n1\n2"), domain.DataSourceTESS)
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if err := uc.ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("ProcessJob() error = %v", err)
	}

	if ingestor.session.Identity != "user-1" || !ingestor.opts.Persist || ingestor.opts.Source != domain.DataSourceTESS {
		t.Fatalf("unexpected ingest call: session=%+v opts=%+v", ingestor.session, ingestor.opts)
	}
	if ingestor.body != "a\n1\n2" {
		t.Fatalf("expected stored body, got %q", ingestor.body)
	}
	want := []domain.BatchStatus{domain.BatchStatusProcessing, domain.BatchStatusDone}
	if len(repo.statuses) != 2 || repo.statuses[0] != want[0] || repo.statuses[1] != want[1] {
		t.Fatalf("unexpected status transitions: %v", repo.statuses)
	}
	if repo.report == nil || repo.report.Processed != 2 {
		t.Fatalf("expected saved report, got %+v", repo.report)
	}
}

func TestProcessJobAnonymousSkipsPersist(t *testing.T) {
	repo := newJobRepoFake()
	ingestor := &ingestorFake{report: &domain.BatchReport{Processed: 1}}
	uc := NewBatchJobUseCase(repo, &storageFake{}, &queueFake{}, ingestor)

	job, _ := uc.Schedule(context.Background(), "", "rows.csv", "text/csv", bytes.NewBufferString("a\n1"), "")
	if err := uc.ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("ProcessJob() error = %v", err)
	}
	if ingestor.opts.Persist {
		t.Fatalf("expected persist disabled for anonymous job")
	}
}

func TestProcessJobMarksFailed(t *testing.T) {
	repo := newJobRepoFake()
	ingestor := &ingestorFake{
		report: &domain.BatchReport{Processed: 1, Persisted: 0, Unpersisted: 1},
		err:    errors.New("persist batch predictions: db down"),
	}
	uc := NewBatchJobUseCase(repo, &storageFake{}, &queueFake{}, ingestor)

	job, _ := uc.Schedule(context.Background(), "user-1", "rows.csv", "text/csv", bytes.NewBufferString("a\n1"), "")
	err := uc.ProcessJob(context.Background(), job.ID)
	if err == nil {
		t.Fatalf("expected error")
	}
	last := repo.statuses[len(repo.statuses)-1]
	if last != domain.BatchStatusFailed || !strings.Contains(repo.errMsg, "db down") {
		t.Fatalf("expected failed status with message, got %s %q", last, repo.errMsg)
	}
	if repo.report == nil || repo.report.Unpersisted != 1 {
		t.Fatalf("expected partial report saved, got %+v", repo.report)
	}
}

func TestProcessJobUnknownID(t *testing.T) {
	repo := newJobRepoFake()
	uc := NewBatchJobUseCase(repo, &storageFake{}, &queueFake{}, &ingestorFake{})

	err := uc.ProcessJob(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProcessJobCancelledMidRunEndsFailed(t *testing.T) {
	repo := newJobRepoFake()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	classifier := &recordClassifierFake{hook: func(call int) {
		if call == 1 {
			cancel()
		}
	}}
	batch := NewBatchIngestUseCase(&parserFake{records: []domain.FeatureRecord{recordOf(1), recordOf(2), recordOf(3)}}, classifier, nil, nil)
	uc := NewBatchJobUseCase(repo, &storageFake{}, &queueFake{}, batch)

	job, err := uc.Schedule(context.Background(), "", "rows.csv", "text/csv", bytes.NewBufferString("a\n1\n2\n3"), "")
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	err = uc.ProcessJob(ctx, job.ID)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	want := []domain.BatchStatus{domain.BatchStatusProcessing, domain.BatchStatusFailed}
	if len(repo.statuses) != 2 || repo.statuses[0] != want[0] || repo.statuses[1] != want[1] {
		t.Fatalf("unexpected status transitions: %v", repo.statuses)
	}
	if repo.report == nil || repo.report.Processed != 1 {
		t.Fatalf("expected partial report with 1 row, got %+v", repo.report)
	}
}
