package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/exoplanet-triage/internal/adapters/http"
	"github.com/kirillkom/exoplanet-triage/internal/bootstrap"
	"github.com/kirillkom/exoplanet-triage/internal/config"
	"github.com/kirillkom/exoplanet-triage/internal/observability/logging"
	"github.com/kirillkom/exoplanet-triage/internal/observability/metrics"
)

const serviceName = "exoplanet-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(serviceName, cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, httpMetrics.Pipeline())
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(cfg, httpadapter.Dependencies{
		Sessions:     app.Sessions,
		Classifier:   app.ClassifyUC,
		Batches:      app.BatchUC,
		Scheduler:    app.BatchJobUC,
		Predictions:  app.PredictionUC,
		Stats:        app.StatsUC,
		ModelMetrics: app.ModelMetricsUC,
		Readiness: map[string]httpadapter.Pinger{
			"classifier": app.Classifier,
		},
		BreakerStates: app.Executor.BreakerStates,
		Metrics:       httpMetrics,
	}).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("api_shutdown_failed", "error", err)
	}
}
