package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
)

const metricsColumns = `id, model_version, accuracy, precision_score, recall, f1_score,
	training_data_size, validation_data_size, feature_importance, created_at`

type ModelMetricsRepository struct {
	db *sql.DB
}

func NewModelMetricsRepository(db *sql.DB) *ModelMetricsRepository {
	return &ModelMetricsRepository{db: db}
}

func (r *ModelMetricsRepository) Insert(ctx context.Context, m *domain.ModelMetrics) error {
	importance := m.FeatureImportance
	if importance == nil {
		importance = []domain.FeatureImportance{}
	}
	importanceJSON, err := json.Marshal(importance)
	if err != nil {
		return fmt.Errorf("marshal feature importance: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO model_metrics (`+metricsColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		m.ID, m.ModelVersion, m.Accuracy, m.Precision, m.Recall, m.F1Score,
		m.TrainingDataSize, m.ValidationDataSize, importanceJSON, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert model metrics: %w", err)
	}
	return nil
}

func (r *ModelMetricsRepository) Latest(ctx context.Context) (*domain.ModelMetrics, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+metricsColumns+`
FROM model_metrics
ORDER BY created_at DESC
LIMIT 1
`)
	m, err := scanMetrics(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "latest model metrics", err)
		}
		return nil, err
	}
	return &m, nil
}

func (r *ModelMetricsRepository) ListAll(ctx context.Context) ([]domain.ModelMetrics, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+metricsColumns+`
FROM model_metrics
ORDER BY created_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("query model metrics: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ModelMetrics, 0)
	for rows.Next() {
		m, err := scanMetrics(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate model metrics: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMetrics(row rowScanner) (domain.ModelMetrics, error) {
	var (
		m             domain.ModelMetrics
		importanceRaw []byte
	)
	err := row.Scan(
		&m.ID, &m.ModelVersion, &m.Accuracy, &m.Precision, &m.Recall, &m.F1Score,
		&m.TrainingDataSize, &m.ValidationDataSize, &importanceRaw, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ModelMetrics{}, err
		}
		return domain.ModelMetrics{}, fmt.Errorf("scan model metrics: %w", err)
	}
	m.FeatureImportance = []domain.FeatureImportance{}
	if len(importanceRaw) > 0 {
		if err := json.Unmarshal(importanceRaw, &m.FeatureImportance); err != nil {
			return domain.ModelMetrics{}, fmt.Errorf("unmarshal feature importance: %w", err)
		}
	}
	return m, nil
}
