// Package metrics defines the Prometheus collectors for extraction runs.
// Runs are batch jobs, so metrics are written in the node-exporter
// textfile format instead of being scraped.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cognicore/termex/pkg/termex/extract"
)

// Metrics holds the collectors of one private registry.
type Metrics struct {
	registry *prometheus.Registry

	DocumentsProcessed prometheus.Counter
	DocumentsSkipped   *prometheus.CounterVec
	TermOccurrences    *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
	UniqueTerms        prometheus.Gauge
	RunDuration        prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		DocumentsProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "termex_documents_processed_total",
				Help: "Documents run through extraction.",
			},
		),
		DocumentsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termex_documents_skipped_total",
				Help: "Documents not extracted, by reason (empty, sampled_out).",
			},
			[]string{"reason"},
		),
		TermOccurrences: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termex_term_occurrences_total",
				Help: "Term occurrences produced, by kind.",
			},
			[]string{"kind"},
		),
		ExtractionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "termex_extraction_duration_seconds",
				Help:    "Per-document extraction latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		UniqueTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "termex_unique_terms",
				Help: "Records in the term table of the last run.",
			},
		),
		RunDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "termex_run_duration_seconds",
				Help: "Wall time of the last run in seconds.",
			},
		),
	}

	m.registry.MustRegister(
		m.DocumentsProcessed,
		m.DocumentsSkipped,
		m.TermOccurrences,
		m.ExtractionDuration,
		m.UniqueTerms,
		m.RunDuration,
	)
	return m
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveDocument records one extracted document. Safe for concurrent use.
func (m *Metrics) ObserveDocument(elapsed time.Duration, occs []extract.TermOccurrence) {
	m.DocumentsProcessed.Inc()
	m.ExtractionDuration.Observe(elapsed.Seconds())
	for _, occ := range occs {
		m.TermOccurrences.WithLabelValues(occ.Kind.String()).Inc()
	}
}

// ObserveRun records run-level totals.
func (m *Metrics) ObserveRun(empty, sampledOut, uniqueTerms int, elapsed time.Duration) {
	m.DocumentsSkipped.WithLabelValues("empty").Add(float64(empty))
	m.DocumentsSkipped.WithLabelValues("sampled_out").Add(float64(sampledOut))
	m.UniqueTerms.Set(float64(uniqueTerms))
	m.RunDuration.Set(elapsed.Seconds())
}

// WriteTextfile writes every collector to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
