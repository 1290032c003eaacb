package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
	"github.com/kirillkom/exoplanet-triage/internal/core/ports"
)

type ModelMetricsUseCase struct {
	repo ports.ModelMetricsRepository
	now  func() time.Time
}

func NewModelMetricsUseCase(repo ports.ModelMetricsRepository) *ModelMetricsUseCase {
	return &ModelMetricsUseCase{repo: repo, now: time.Now}
}

// Latest returns the newest snapshot, or the default snapshot when none was recorded.
func (uc *ModelMetricsUseCase) Latest(ctx context.Context) (domain.ModelMetrics, error) {
	m, err := uc.repo.Latest(ctx)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return domain.DefaultModelMetrics(), nil
		}
		return domain.ModelMetrics{}, fmt.Errorf("load latest metrics: %w", err)
	}
	return *m, nil
}

func (uc *ModelMetricsUseCase) All(ctx context.Context) ([]domain.ModelMetrics, error) {
	out, err := uc.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	return out, nil
}

func (uc *ModelMetricsUseCase) Record(ctx context.Context, m domain.ModelMetrics) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	m.ID = uuid.NewString()
	m.CreatedAt = uc.now().UTC()
	if m.FeatureImportance == nil {
		m.FeatureImportance = []domain.FeatureImportance{}
	}
	if err := uc.repo.Insert(ctx, &m); err != nil {
		return "", fmt.Errorf("insert metrics: %w", err)
	}
	return m.ID, nil
}
