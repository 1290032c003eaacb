package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
)

const predictionColumns = `id, user_id, kepler_name, period, transit_duration, planet_radius, stellar_radius,
	stellar_mass, stellar_temperature, equilibrium_temperature, insolation_flux, classification, confidence, source, created_at`

type PredictionRepository struct {
	db *sql.DB
}

func NewPredictionRepository(db *sql.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) Insert(ctx context.Context, p *domain.Prediction) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO predictions (`+predictionColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
		p.ID, p.UserID, nullString(p.KeplerName), p.Period, p.TransitDuration, p.PlanetRadius, p.StellarRadius,
		p.StellarMass, p.StellarTemperature, p.EquilibriumTemperature, p.InsolationFlux,
		string(p.Classification), p.Confidence, string(p.Source), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// InsertMany writes rows one by one without a transaction and returns the IDs
// stored before the first failure.
func (r *PredictionRepository) InsertMany(ctx context.Context, ps []domain.Prediction) ([]string, error) {
	ids := make([]string, 0, len(ps))
	for i := range ps {
		if err := r.Insert(ctx, &ps[i]); err != nil {
			return ids, fmt.Errorf("row %d: %w", i+1, err)
		}
		ids = append(ids, ps[i].ID)
	}
	return ids, nil
}

func (r *PredictionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Prediction, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+predictionColumns+`
FROM predictions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()
	return scanPredictions(rows)
}

func (r *PredictionRepository) ListAllByUser(ctx context.Context, userID string) ([]domain.Prediction, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+predictionColumns+`
FROM predictions
WHERE user_id = $1
`, userID)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()
	return scanPredictions(rows)
}

func scanPredictions(rows *sql.Rows) ([]domain.Prediction, error) {
	out := make([]domain.Prediction, 0)
	for rows.Next() {
		var (
			p              domain.Prediction
			keplerName     sql.NullString
			classification string
			source         string
		)
		if err := rows.Scan(
			&p.ID, &p.UserID, &keplerName, &p.Period, &p.TransitDuration, &p.PlanetRadius, &p.StellarRadius,
			&p.StellarMass, &p.StellarTemperature, &p.EquilibriumTemperature, &p.InsolationFlux,
			&classification, &p.Confidence, &source, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		p.KeplerName = keplerName.String
		p.Classification = domain.Label(classification)
		p.Source = domain.DataSource(source)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predictions: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
