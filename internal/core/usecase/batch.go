package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
	"github.com/kirillkom/exoplanet-triage/internal/core/ports"
)

// BatchIngestUseCase drives bulk uploads row by row. Rows are never processed
// concurrently: ledger order must follow input order and the model service may
// rate-limit per caller.
type BatchIngestUseCase struct {
	parser      ports.RecordParser
	classifier  ports.RecordClassifier
	predictions ports.PredictionService
	observer    ports.ClassificationObserver
	now         func() time.Time
}

func NewBatchIngestUseCase(
	parser ports.RecordParser,
	classifier ports.RecordClassifier,
	predictions ports.PredictionService,
	observer ports.ClassificationObserver,
) *BatchIngestUseCase {
	return &BatchIngestUseCase{
		parser:      parser,
		classifier:  classifier,
		predictions: predictions,
		observer:    observer,
		now:         time.Now,
	}
}

func (uc *BatchIngestUseCase) IngestUpload(
	ctx context.Context,
	session *domain.Session,
	filename, mimeType string,
	body io.Reader,
	opts domain.BatchOptions,
) (*domain.BatchReport, error) {
	records, err := uc.parser.Parse(filename, mimeType, body)
	if err != nil {
		return nil, fmt.Errorf("parse upload: %w", err)
	}
	return uc.Run(ctx, session, records, opts)
}

// Run classifies records in order. Cancellation is checked between rows; on
// cancellation the report covers the rows finished so far.
func (uc *BatchIngestUseCase) Run(
	ctx context.Context,
	session *domain.Session,
	records []domain.FeatureRecord,
	opts domain.BatchOptions,
) (*domain.BatchReport, error) {
	if session == nil || session.Ledger == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "run batch", errors.New("session is required"))
	}
	if opts.Persist && session.Anonymous() {
		return nil, domain.WrapError(domain.ErrUnauthorized, "run batch", errors.New("must be authenticated to persist predictions"))
	}

	report := &domain.BatchReport{
		Entries: make([]domain.HistoryEntry, 0, len(records)),
	}
	for idx, record := range records {
		if err := ctx.Err(); err != nil {
			slog.Warn("batch_cancelled", "session_id", session.ID, "processed", report.Processed, "total", len(records))
			return report, err
		}

		entry := uc.classifyRow(ctx, session, idx, record)
		report.Processed++
		report.Entries = append(report.Entries, entry)
		if entry.Source == domain.SourceRemote {
			report.RemoteLabels++
		} else {
			report.FallbackLabels++
		}
		if entry.Enriched() {
			report.Enriched++
		}
	}

	if uc.observer != nil {
		uc.observer.ObserveBatch(report.Processed)
	}
	slog.Info("batch_completed",
		"session_id", session.ID,
		"rows", report.Processed,
		"remote", report.RemoteLabels,
		"fallback", report.FallbackLabels,
		"enriched", report.Enriched,
	)

	report.ShowResults = true
	if opts.Persist {
		if err := uc.persist(ctx, session, report, opts.Source); err != nil {
			return report, err
		}
	}
	return report, nil
}

// classifyRow always yields an entry: a row the classifier rejects outright is
// still labelled by the fallback rule so no row is silently dropped.
func (uc *BatchIngestUseCase) classifyRow(ctx context.Context, session *domain.Session, idx int, record domain.FeatureRecord) domain.HistoryEntry {
	entry, err := uc.classifier.Classify(ctx, session, record)
	if err == nil {
		return entry
	}

	slog.Warn("batch_row_fallback", "session_id", session.ID, "row", idx+1, "error", err)
	result := FallbackClassify(record)
	return session.Ledger.Append(domain.HistoryEntry{
		Timestamp:  uc.now().UnixMilli(),
		Inputs:     record,
		Prediction: result.Label,
		Source:     result.Source,
	})
}

func (uc *BatchIngestUseCase) persist(ctx context.Context, session *domain.Session, report *domain.BatchReport, source domain.DataSource) error {
	if uc.predictions == nil {
		return errors.New("prediction store is not configured")
	}
	if source == "" {
		source = domain.DataSourceKepler
	}

	predictions := make([]domain.Prediction, 0, len(report.Entries))
	for _, entry := range report.Entries {
		p, err := domain.PredictionFromEntry(entry, source)
		if err != nil {
			report.Unpersisted++
			continue
		}
		predictions = append(predictions, p)
	}
	if len(predictions) == 0 {
		return nil
	}

	ids, err := uc.predictions.BatchCreate(ctx, session.Identity, predictions)
	report.Persisted = len(ids)
	report.Unpersisted += len(predictions) - len(ids)
	if err != nil {
		return fmt.Errorf("persist batch predictions: %w", err)
	}
	return nil
}
