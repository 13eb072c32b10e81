// Package metrics exposes Prometheus counters for block processing.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smartblock"

// Metrics holds the collectors registered on one registry.
type Metrics struct {
	reg *prometheus.Registry

	documentsParsed prometheus.Counter
	blocksParsed    prometheus.Counter
	parseWarnings   *prometheus.CounterVec
	parseDuration   prometheus.Histogram
	jobs            *prometheus.CounterVec
	events          *prometheus.CounterVec
	indexedBlocks   prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		documentsParsed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_parsed_total",
			Help:      "Documents scanned for block markers.",
		}),
		blocksParsed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_parsed_total",
			Help:      "Valid blocks produced by the parser.",
		}),
		parseWarnings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_warnings_total",
			Help:      "Parser warnings by kind (orphaned, nested).",
		}, []string{"kind"}),
		parseDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Time spent parsing one document.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		jobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Settled block processing jobs by type and status.",
		}, []string{"type", "status"}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Lifecycle events emitted by type.",
		}, []string{"type"}),
		indexedBlocks: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_blocks",
			Help:      "Blocks currently held in the search index.",
		}),
	}
}

// ObserveParse records one document parse.
func (m *Metrics) ObserveParse(blocks int, warningKinds []string, took time.Duration) {
	if m == nil {
		return
	}
	m.documentsParsed.Inc()
	m.blocksParsed.Add(float64(blocks))
	for _, k := range warningKinds {
		m.parseWarnings.WithLabelValues(k).Inc()
	}
	m.parseDuration.Observe(took.Seconds())
}

// JobSettled counts a job reaching a terminal status.
func (m *Metrics) JobSettled(jobType, status string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(jobType, status).Inc()
}

// Event counts an emitted event.
func (m *Metrics) Event(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}

// SetIndexedBlocks sets the index size gauge.
func (m *Metrics) SetIndexedBlocks(n int) {
	if m == nil {
		return
	}
	m.indexedBlocks.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
