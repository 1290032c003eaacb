package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/exoplanet-triage/internal/bootstrap"
	"github.com/kirillkom/exoplanet-triage/internal/config"
	"github.com/kirillkom/exoplanet-triage/internal/observability/logging"
	"github.com/kirillkom/exoplanet-triage/internal/observability/metrics"
)

const (
	serviceName = "exoplanet-worker"
	jobTimeout  = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(serviceName, cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, workerMetrics.Pipeline())
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
		err := app.Queue.SubscribeBatchQueued(groupCtx, func(handlerCtx context.Context, jobID string) error {
			processCtx, cancel := context.WithTimeout(handlerCtx, jobTimeout)
			defer cancel()

			if job, err := app.BatchJobUC.GetJob(processCtx, jobID); err == nil {
				workerMetrics.ObserveQueueLag(serviceName, time.Since(job.CreatedAt))
			}

			started := time.Now()
			workerMetrics.StartJob()
			err := app.BatchJobUC.ProcessJob(processCtx, jobID)
			workerMetrics.FinishJob(serviceName, time.Since(started), err)

			readCtx, readCancel := context.WithTimeout(context.WithoutCancel(handlerCtx), 5*time.Second)
			defer readCancel()
			if job, getErr := app.BatchJobUC.GetJob(readCtx, jobID); getErr == nil {
				workerMetrics.ObserveJobRows(serviceName, job.Processed, job.Fallbacks, job.Persisted)
			}
			return err
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		slog.Error("worker_failed", "error", err)
		app.Close()
		os.Exit(1)
	}
}
