package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
	"github.com/kirillkom/exoplanet-triage/internal/core/ports"
)

const (
	enrichmentApplied = "applied"
	enrichmentInline  = "inline"
	enrichmentMissing = "missing"
	enrichmentStale   = "stale"
)

type ClassifyUseCase struct {
	remote        ports.RemoteClassifier
	observer      ports.ClassificationObserver
	enrichEnabled bool
	now           func() time.Time
}

func NewClassifyUseCase(
	remote ports.RemoteClassifier,
	observer ports.ClassificationObserver,
	enrichEnabled bool,
) *ClassifyUseCase {
	return &ClassifyUseCase{
		remote:        remote,
		observer:      observer,
		enrichEnabled: enrichEnabled,
		now:           time.Now,
	}
}

// Classify labels one record and records it at the head of the session ledger.
// Remote failures are never returned: they downgrade to the fallback classifier.
func (uc *ClassifyUseCase) Classify(
	ctx context.Context,
	session *domain.Session,
	record domain.FeatureRecord,
) (domain.HistoryEntry, error) {
	if session == nil || session.Ledger == nil {
		return domain.HistoryEntry{}, domain.WrapError(domain.ErrInvalidInput, "classify", errors.New("session is required"))
	}
	if record.Len() == 0 {
		return domain.HistoryEntry{}, domain.WrapError(domain.ErrInvalidInput, "classify", errors.New("record has no features"))
	}

	result := uc.label(ctx, record)
	entry := uc.commit(session, record, result)

	if entry.Enriched() {
		uc.observeEnrichment(enrichmentInline)
		return entry, nil
	}
	return uc.enrich(ctx, session, entry), nil
}

func (uc *ClassifyUseCase) label(ctx context.Context, record domain.FeatureRecord) domain.ClassificationResult {
	if uc.remote == nil {
		return uc.fallback(record, errors.New("remote classifier not configured"))
	}

	result, err := uc.remote.Classify(ctx, record)
	if err != nil {
		return uc.fallback(record, err)
	}
	result.Source = domain.SourceRemote
	uc.observeClassification(domain.SourceRemote)
	return result
}

func (uc *ClassifyUseCase) fallback(record domain.FeatureRecord, cause error) domain.ClassificationResult {
	result := FallbackClassify(record)
	slog.Warn("classifier_fallback",
		"label", string(result.Label),
		"features", record.Len(),
		"error", cause,
	)
	uc.observeClassification(domain.SourceFallback)
	return result
}

// commit is phase one: the base entry lands in the ledger before any enrichment.
func (uc *ClassifyUseCase) commit(session *domain.Session, record domain.FeatureRecord, result domain.ClassificationResult) domain.HistoryEntry {
	return session.Ledger.Append(domain.HistoryEntry{
		Timestamp:         uc.now().UnixMilli(),
		Inputs:            record,
		Prediction:        result.Label,
		Confidence:        result.Confidence,
		Confidences:       result.Probabilities,
		FeatureImportance: result.FeatureImportance,
		Source:            result.Source,
	})
}

// enrich is phase two: best-effort detail fetch, applied only while the entry is still the head.
func (uc *ClassifyUseCase) enrich(ctx context.Context, session *domain.Session, entry domain.HistoryEntry) domain.HistoryEntry {
	if !uc.enrichEnabled || uc.remote == nil {
		return entry
	}

	enrichment, err := uc.remote.Enrich(ctx, entry.Inputs)
	if err != nil || enrichment.Empty() {
		slog.Debug("classifier_enrichment_missing", "entry_id", entry.ID, "error", err)
		uc.observeEnrichment(enrichmentMissing)
		return entry
	}

	if !session.Ledger.EnrichIfHead(entry.ID, enrichment) {
		slog.Warn("classifier_enrichment_stale", "entry_id", entry.ID, "session_id", session.ID)
		uc.observeEnrichment(enrichmentStale)
		return entry
	}
	uc.observeEnrichment(enrichmentApplied)
	return entry.WithEnrichment(enrichment)
}

func (uc *ClassifyUseCase) observeClassification(source domain.ResultSource) {
	if uc.observer != nil {
		uc.observer.ObserveClassification(source)
	}
}

func (uc *ClassifyUseCase) observeEnrichment(outcome string) {
	if uc.observer != nil {
		uc.observer.ObserveEnrichment(outcome)
	}
}
