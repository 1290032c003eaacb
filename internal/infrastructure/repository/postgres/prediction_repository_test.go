package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
)

func predictionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "kepler_name", "period", "transit_duration", "planet_radius", "stellar_radius",
		"stellar_mass", "stellar_temperature", "equilibrium_temperature", "insolation_flux", "classification",
		"confidence", "source", "created_at",
	})
}

func TestPredictionRepositoryListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewPredictionRepository(db)
	rows := predictionRows().
		AddRow("p-1", "u-1", "Kepler-227 b", 9.48, 2.95, 2.26, 0.93, 0.97, 5455.0, 793.0, nil, "CONFIRMED", 0.91, "KEPLER", time.Now()).
		AddRow("p-2", "u-1", nil, 19.9, 4.5, 2.8, 0.92, 0.96, 5455.0, nil, nil, "CANDIDATE", nil, "TESS", time.Now())

	mock.ExpectQuery("FROM predictions").
		WithArgs("u-1", 50).
		WillReturnRows(rows)

	out, err := repo.ListByUser(context.Background(), "u-1", 50)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 predictions, got %d", len(out))
	}
	if out[0].KeplerName != "Kepler-227 b" || out[0].EquilibriumTemperature == nil || *out[0].Confidence != 0.91 {
		t.Fatalf("unexpected first row: %+v", out[0])
	}
	if out[1].KeplerName != "" || out[1].Confidence != nil || out[1].Source != domain.DataSourceTESS {
		t.Fatalf("unexpected second row: %+v", out[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPredictionRepositoryInsertManyStopsAtFirstFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewPredictionRepository(db)
	mock.ExpectExec("INSERT INTO predictions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO predictions").WillReturnError(errors.New("connection reset"))

	ps := []domain.Prediction{
		{ID: "p-1", UserID: "u-1", Classification: domain.LabelConfirmed, Source: domain.DataSourceKepler},
		{ID: "p-2", UserID: "u-1", Classification: domain.LabelCandidate, Source: domain.DataSourceKepler},
		{ID: "p-3", UserID: "u-1", Classification: domain.LabelCandidate, Source: domain.DataSourceKepler},
	}
	ids, err := repo.InsertMany(context.Background(), ps)
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(ids) != 1 || ids[0] != "p-1" {
		t.Fatalf("expected only p-1 stored, got %v", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
