package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec

	// per-job row accounting read back from the finished job record
	jobRows       *prometheus.HistogramVec
	rowsBySource  *prometheus.CounterVec
	fallbackShare *prometheus.HistogramVec
	unpersisted   *prometheus.CounterVec

	pipeline *PipelineMetrics
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exo",
			Subsystem: "worker",
			Name:      "batch_job_total",
			Help:      "Total processed batch jobs by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "exo",
			Subsystem: "worker",
			Name:      "batch_job_duration_seconds",
			Help:      "Batch job duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "exo",
			Subsystem: "worker",
			Name:      "batch_job_in_flight",
			Help:      "Number of batch jobs being processed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "exo",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between job creation and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	jobRows := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "exo",
			Subsystem: "worker",
			Name:      "batch_job_rows",
			Help:      "Rows classified per finished batch job.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"service"},
	)
	rowsBySource := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exo",
			Subsystem: "worker",
			Name:      "batch_rows_total",
			Help:      "Batch rows by label source (remote classifier or local fallback).",
		},
		[]string{"service", "source"},
	)
	fallbackShare := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "exo",
			Subsystem: "worker",
			Name:      "batch_job_fallback_ratio",
			Help:      "Share of rows per job labelled by the local fallback.",
			Buckets:   []float64{0, 0.01, 0.05, 0.1, 0.25, 0.5, 0.75, 1},
		},
		[]string{"service"},
	)
	unpersisted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exo",
			Subsystem: "worker",
			Name:      "batch_rows_unpersisted_total",
			Help:      "Classified batch rows that were not stored as predictions.",
		},
		[]string{"service"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag,
		jobRows, rowsBySource, fallbackShare, unpersisted)

	return &WorkerMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueLag:        queueLag,
		jobRows:         jobRows,
		rowsBySource:    rowsBySource,
		fallbackShare:   fallbackShare,
		unpersisted:     unpersisted,
		pipeline:        newPipelineMetrics(registry, service),
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) Pipeline() *PipelineMetrics {
	return m.pipeline
}

func (m *WorkerMetrics) StartJob() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishJob(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

// ObserveJobRows records the row split of a finished job. Jobs that classified
// nothing are skipped so the ratio histogram is not skewed by empty uploads.
func (m *WorkerMetrics) ObserveJobRows(service string, processed, fallbacks, persisted int) {
	if processed <= 0 {
		return
	}
	fallbacks = min(max(fallbacks, 0), processed)
	persisted = min(max(persisted, 0), processed)

	m.jobRows.WithLabelValues(service).Observe(float64(processed))
	m.rowsBySource.WithLabelValues(service, "remote").Add(float64(processed - fallbacks))
	m.rowsBySource.WithLabelValues(service, "fallback").Add(float64(fallbacks))
	m.fallbackShare.WithLabelValues(service).Observe(float64(fallbacks) / float64(processed))
	if persisted < processed {
		m.unpersisted.WithLabelValues(service).Add(float64(processed - persisted))
	}
}
