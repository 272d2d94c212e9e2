// Package metrics provides Prometheus collectors for the scanner pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ResolverMetrics contains Prometheus metrics for product resolution.
type ResolverMetrics struct {
	registry *prometheus.Registry

	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	lookups        *prometheus.CounterVec
	lookupDuration *prometheus.HistogramVec
	estimates      *prometheus.CounterVec
	notFound       prometheus.Counter
	cacheSize      prometheus.Gauge

	collectors []prometheus.Collector
}

// NewResolverMetrics creates and registers new resolver metrics.
func NewResolverMetrics(registry *prometheus.Registry) (*ResolverMetrics, error) {
	m := &ResolverMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ResolverMetrics) initMetrics() error {
	m.cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_cache_hits_total",
			Help: "Total number of product cache hits",
		},
		[]string{"kind"},
	)

	m.cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_cache_misses_total",
			Help: "Total number of product cache misses",
		},
		[]string{"kind"},
	)

	m.lookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_remote_lookups_total",
			Help: "Total number of remote product lookups",
		},
		[]string{"kind", "status"},
	)

	m.lookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resolver_remote_lookup_duration_seconds",
			Help:    "Duration of remote product lookups",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	m.estimates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_estimates_total",
			Help: "Total number of synthetic estimate records produced",
		},
		[]string{"reason"},
	)

	m.notFound = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resolver_barcode_not_found_total",
			Help: "Total number of barcode lookups with no matching product",
		},
	)

	m.cacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "resolver_cache_entries",
			Help: "Current number of cached product records",
		},
	)

	m.collectors = []prometheus.Collector{
		m.cacheHits,
		m.cacheMisses,
		m.lookups,
		m.lookupDuration,
		m.estimates,
		m.notFound,
		m.cacheSize,
	}

	return nil
}

// Describe implements the Collector interface
func (m *ResolverMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *ResolverMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordCacheHit records a product cache hit for the given lookup kind.
func (m *ResolverMetrics) RecordCacheHit(kind string) {
	m.cacheHits.WithLabelValues(kind).Inc()
}

// RecordCacheMiss records a product cache miss for the given lookup kind.
func (m *ResolverMetrics) RecordCacheMiss(kind string) {
	m.cacheMisses.WithLabelValues(kind).Inc()
}

// RecordLookup records a remote lookup attempt and its outcome status.
func (m *ResolverMetrics) RecordLookup(kind, status string) {
	m.lookups.WithLabelValues(kind, status).Inc()
}

// RecordLookupDuration records the duration of a remote lookup in seconds.
func (m *ResolverMetrics) RecordLookupDuration(kind string, seconds float64) {
	m.lookupDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordEstimate records a synthetic estimate and the reason it was needed.
func (m *ResolverMetrics) RecordEstimate(reason string) {
	m.estimates.WithLabelValues(reason).Inc()
}

// RecordNotFound records a barcode lookup that matched no product.
func (m *ResolverMetrics) RecordNotFound() {
	m.notFound.Inc()
}

// UpdateCacheSize updates the cached record count gauge.
func (m *ResolverMetrics) UpdateCacheSize(count int) {
	m.cacheSize.Set(float64(count))
}
