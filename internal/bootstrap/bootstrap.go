package bootstrap

import (
	"context"
	"fmt"

	"github.com/kirillkom/exoplanet-triage/internal/config"
	"github.com/kirillkom/exoplanet-triage/internal/core/ports"
	"github.com/kirillkom/exoplanet-triage/internal/core/usecase"
	"github.com/kirillkom/exoplanet-triage/internal/infrastructure/classifier/remote"
	"github.com/kirillkom/exoplanet-triage/internal/infrastructure/extractor/tabular"
	"github.com/kirillkom/exoplanet-triage/internal/infrastructure/queue/nats"
	"github.com/kirillkom/exoplanet-triage/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/exoplanet-triage/internal/infrastructure/resilience"
	"github.com/kirillkom/exoplanet-triage/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue      ports.MessageQueue
	Sessions   *usecase.SessionStore
	Classifier *remote.Client
	Executor   *resilience.Executor

	ClassifyUC     *usecase.ClassifyUseCase
	BatchUC        *usecase.BatchIngestUseCase
	BatchJobUC     *usecase.BatchJobUseCase
	PredictionUC   *usecase.PredictionUseCase
	StatsUC        *usecase.StatsUseCase
	ModelMetricsUC *usecase.ModelMetricsUseCase

	closeFn func()
}

// New wires every adapter. observer receives pipeline outcomes and may be nil.
func New(ctx context.Context, cfg config.Config, observer ports.ClassificationObserver) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	predictionRepo := postgres.NewPredictionRepository(db)
	metricsRepo := postgres.NewModelMetricsRepository(db)
	jobRepo := postgres.NewBatchJobRepository(db)

	storage, err := localfs.New(cfg.StoragePath, cfg.UploadMaxBytes)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	policy := cfg.Resilience
	policy.OperationMaxAttempts = map[string]int{remote.OperationEnrich: cfg.ClassifierEnrichMaxAttempts}
	executor := resilience.NewExecutor(policy)
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	classifier := remote.New(cfg.ClassifierURL, remote.Options{
		Timeout:            cfg.ClassifierTimeout,
		ResilienceExecutor: executor,
	})

	classifyUC := usecase.NewClassifyUseCase(classifier, observer, cfg.ClassifierEnrichEnabled)
	predictionUC := usecase.NewPredictionUseCase(predictionRepo)
	batchUC := usecase.NewBatchIngestUseCase(tabular.NewParser(), classifyUC, predictionUC, observer)

	return &App{
		Config:     cfg,
		Queue:      queue,
		Sessions:   usecase.NewSessionStore(cfg.SessionTTL),
		Classifier: classifier,
		Executor:   executor,

		ClassifyUC:     classifyUC,
		BatchUC:        batchUC,
		BatchJobUC:     usecase.NewBatchJobUseCase(jobRepo, storage, queue, batchUC),
		PredictionUC:   predictionUC,
		StatsUC:        usecase.NewStatsUseCase(predictionRepo),
		ModelMetricsUC: usecase.NewModelMetricsUseCase(metricsRepo),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
