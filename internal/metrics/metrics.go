// Package metrics exports Prometheus counters for the deal pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dealfinder"

// Metrics holds all pipeline Prometheus metrics
type Metrics struct {
	PagesFetched         *prometheus.CounterVec
	PagesFailed          *prometheus.CounterVec
	StructureInvalidated *prometheus.CounterVec
	DealsDiscovered      *prometheus.CounterVec
	DealsScored          *prometheus.CounterVec
	DealsAdmitted        *prometheus.CounterVec
	ProductFailures      *prometheus.CounterVec
	ScoreFailures        *prometheus.CounterVec
	PersistFailures      *prometheus.CounterVec
	RunDuration          prometheus.Histogram
	ScoreDistribution    prometheus.Histogram

	gatherer prometheus.Gatherer
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns metrics registered on the global Prometheus registry
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = newMetrics(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return defaultMetrics
}

// New registers a fresh set of metrics on reg
func New(reg *prometheus.Registry) *Metrics {
	return newMetrics(reg, reg)
}

func newMetrics(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{gatherer: gatherer}

	m.PagesFetched = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_fetched_total",
		Help:      "Total retail pages fetched and parsed",
	}, []string{"domain"})

	m.PagesFailed = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_failed_total",
		Help:      "Total pages that produced no extraction, by error type",
	}, []string{"domain", "error_type"})

	m.StructureInvalidated = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "structure_invalidated_total",
		Help:      "Total selector sets invalidated after repeated empty extractions",
	}, []string{"domain"})

	m.DealsDiscovered = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deals_discovered_total",
		Help:      "Total candidate deals extracted",
	}, []string{"retailer"})

	m.DealsScored = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deals_scored_total",
		Help:      "Total deals sent through quality scoring",
	}, []string{"retailer"})

	m.DealsAdmitted = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deals_admitted_total",
		Help:      "Total deals that passed the ingestion floor",
	}, []string{"retailer"})

	m.ProductFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "product_failures_total",
		Help:      "Total products skipped during extraction, by error type",
	}, []string{"retailer", "error_type"})

	m.ScoreFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "score_failures_total",
		Help:      "Total scoring failures, by error type",
	}, []string{"error_type"})

	m.PersistFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persist_failures_total",
		Help:      "Total deals a sink failed to persist",
	}, []string{"sink"})

	m.RunDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of one crawl run",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	m.ScoreDistribution = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "quality_score",
		Help:      "Distribution of quality scores",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	return m
}

// ObserveRun records the duration of a run that started at start
func (m *Metrics) ObserveRun(start time.Time) {
	m.RunDuration.Observe(time.Since(start).Seconds())
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	if m.gatherer == prometheus.DefaultGatherer {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
