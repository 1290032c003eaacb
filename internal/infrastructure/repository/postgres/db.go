package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS predictions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	kepler_name TEXT,
	period DOUBLE PRECISION NOT NULL,
	transit_duration DOUBLE PRECISION NOT NULL,
	planet_radius DOUBLE PRECISION NOT NULL,
	stellar_radius DOUBLE PRECISION NOT NULL,
	stellar_mass DOUBLE PRECISION NOT NULL,
	stellar_temperature DOUBLE PRECISION NOT NULL,
	equilibrium_temperature DOUBLE PRECISION,
	insolation_flux DOUBLE PRECISION,
	classification TEXT NOT NULL,
	confidence DOUBLE PRECISION,
	source TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_predictions_user ON predictions(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_predictions_classification ON predictions(classification);
CREATE INDEX IF NOT EXISTS idx_predictions_source ON predictions(source);

CREATE TABLE IF NOT EXISTS model_metrics (
	id TEXT PRIMARY KEY,
	model_version TEXT NOT NULL,
	accuracy DOUBLE PRECISION NOT NULL,
	precision_score DOUBLE PRECISION NOT NULL,
	recall DOUBLE PRECISION NOT NULL,
	f1_score DOUBLE PRECISION NOT NULL,
	training_data_size INTEGER NOT NULL,
	validation_data_size INTEGER NOT NULL,
	feature_importance JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_model_metrics_version ON model_metrics(model_version);
CREATE INDEX IF NOT EXISTS idx_model_metrics_created_at ON model_metrics(created_at DESC);

CREATE TABLE IF NOT EXISTS batch_jobs (
	id TEXT PRIMARY KEY,
	user_id TEXT,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	source TEXT NOT NULL,
	status TEXT NOT NULL,
	processed INTEGER NOT NULL DEFAULT 0,
	fallbacks INTEGER NOT NULL DEFAULT 0,
	persisted INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_batch_jobs_status ON batch_jobs(status);
`

// EnsureSchema creates every table the service needs.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2024100501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
