package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kirillkom/exoplanet-triage/internal/config"
	"github.com/kirillkom/exoplanet-triage/internal/core/ports"
)

// Pinger is satisfied by dependencies that report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Metrics is the subset of the HTTP metrics the router needs.
type Metrics interface {
	Middleware(service string, next http.Handler) http.Handler
	Handler() http.Handler
	RecordRejected(service, reason string)
}

type Dependencies struct {
	Sessions     ports.SessionProvider
	Classifier   ports.RecordClassifier
	Batches      ports.BatchIngestor
	Scheduler    ports.BatchScheduler
	Predictions  ports.PredictionService
	Stats        ports.StatsReader
	ModelMetrics ports.ModelMetricsCatalog
	// Readiness probes, keyed by dependency name.
	Readiness map[string]Pinger
	// BreakerStates reports outbound circuit breakers for /readyz.
	BreakerStates func() map[string]string
	Metrics       Metrics
}

type Router struct {
	cfg  config.Config
	deps Dependencies
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	return &Router{cfg: cfg, deps: deps}
}

const serviceName = "exoplanet-api"

func (rt *Router) Handler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	r.HandleFunc("/healthz", rt.healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", rt.readyz).Methods(http.MethodGet)
	if rt.deps.Metrics != nil {
		r.Handle("/metrics", rt.deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/sessions", rt.createSession).Methods(http.MethodPost)
	v1.HandleFunc("/classify", rt.classify).Methods(http.MethodPost)
	v1.HandleFunc("/history", rt.history).Methods(http.MethodGet)

	v1.HandleFunc("/batches", rt.uploadBatch).Methods(http.MethodPost)
	v1.HandleFunc("/batches/{id}", rt.getBatchJob).Methods(http.MethodGet)

	v1.HandleFunc("/predictions", rt.createPrediction).Methods(http.MethodPost)
	v1.HandleFunc("/predictions", rt.listPredictions).Methods(http.MethodGet)
	v1.HandleFunc("/predictions/batch", rt.batchCreatePredictions).Methods(http.MethodPost)
	v1.HandleFunc("/predictions/stats", rt.predictionStats).Methods(http.MethodGet)

	v1.HandleFunc("/model-metrics", rt.listModelMetrics).Methods(http.MethodGet)
	v1.HandleFunc("/model-metrics", rt.recordModelMetrics).Methods(http.MethodPost)
	v1.HandleFunc("/model-metrics/latest", rt.latestModelMetrics).Methods(http.MethodGet)

	var handler http.Handler = r
	handler = backpressureWithReject(handler, rt.cfg.APIMaxInFlight, rt.queueTimeout(), rt.onReject)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.onReject)
	handler = identityMiddleware(rt.cfg.APITokens, handler)
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) queueTimeout() time.Duration {
	if rt.cfg.APIQueueTimeout > 0 {
		return rt.cfg.APIQueueTimeout
	}
	return 250 * time.Millisecond
}

func (rt *Router) onReject(reason string) {
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordRejected(serviceName, reason)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(rt.deps.Readiness))
	for name, probe := range rt.deps.Readiness {
		if err := probe.Ping(ctx); err != nil {
			slog.Warn("readiness_check_failed", "dependency", name, "error", err)
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	payload := map[string]any{"status": http.StatusText(status), "checks": checks}
	if rt.deps.BreakerStates != nil {
		payload["breakers"] = rt.deps.BreakerStates()
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("response_encode_failed", "error", err)
	}
}
