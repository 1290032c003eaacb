package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
)

// PipelineMetrics counts classification outcomes. It satisfies
// ports.ClassificationObserver.
type PipelineMetrics struct {
	service string

	classificationsTotal *prometheus.CounterVec
	enrichmentTotal      *prometheus.CounterVec
	batchRows            *prometheus.HistogramVec
}

func newPipelineMetrics(registry prometheus.Registerer, service string) *PipelineMetrics {
	classificationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exo",
			Subsystem: "classifier",
			Name:      "classifications_total",
			Help:      "Total classifications by label source.",
		},
		[]string{"service", "source"},
	)
	enrichmentTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exo",
			Subsystem: "classifier",
			Name:      "enrichment_total",
			Help:      "Total enrichment attempts by outcome.",
		},
		[]string{"service", "outcome"},
	)
	batchRows := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "exo",
			Subsystem: "batch",
			Name:      "rows",
			Help:      "Distribution of rows per completed batch.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		},
		[]string{"service"},
	)

	registry.MustRegister(classificationsTotal, enrichmentTotal, batchRows)

	return &PipelineMetrics{
		service:              service,
		classificationsTotal: classificationsTotal,
		enrichmentTotal:      enrichmentTotal,
		batchRows:            batchRows,
	}
}

func (m *PipelineMetrics) ObserveClassification(source domain.ResultSource) {
	if source == "" {
		source = "unknown"
	}
	m.classificationsTotal.WithLabelValues(m.service, string(source)).Inc()
}

func (m *PipelineMetrics) ObserveEnrichment(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.enrichmentTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *PipelineMetrics) ObserveBatch(rows int) {
	m.batchRows.WithLabelValues(m.service).Observe(float64(rows))
}
