package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PanelMetrics contains Prometheus metrics for panel lifecycle and layout.
type PanelMetrics struct {
	registry *prometheus.Registry

	activePanels  prometheus.Gauge
	placements    *prometheus.CounterVec
	removals      *prometheus.CounterVec
	repositions   *prometheus.CounterVec
	comparisons   *prometheus.CounterVec
	orientation   *prometheus.CounterVec
	frontRequests prometheus.Counter

	collectors []prometheus.Collector
}

// NewPanelMetrics creates and registers new panel metrics.
func NewPanelMetrics(registry *prometheus.Registry) (*PanelMetrics, error) {
	m := &PanelMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *PanelMetrics) initMetrics() error {
	m.activePanels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "panel_active_count",
			Help: "Current number of live panels",
		},
	)

	m.placements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panel_placements_total",
			Help: "Total number of panels placed",
		},
		[]string{"mode"},
	)

	m.removals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panel_removals_total",
			Help: "Total number of panels removed",
		},
		[]string{"reason"},
	)

	m.repositions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panel_repositions_total",
			Help: "Total number of panel position updates",
		},
		[]string{"source"},
	)

	m.comparisons = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panel_comparison_transitions_total",
			Help: "Total number of comparison mode transitions",
		},
		[]string{"transition"},
	)

	m.orientation = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panel_orientation_samples_total",
			Help: "Total number of device orientation samples processed",
		},
		[]string{"status"},
	)

	m.frontRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "panel_bring_to_front_total",
			Help: "Total number of bring-to-front requests",
		},
	)

	m.collectors = []prometheus.Collector{
		m.activePanels,
		m.placements,
		m.removals,
		m.repositions,
		m.comparisons,
		m.orientation,
		m.frontRequests,
	}

	return nil
}

// Describe implements the Collector interface
func (m *PanelMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *PanelMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// UpdateActivePanels updates the live panel count gauge.
func (m *PanelMetrics) UpdateActivePanels(count int) {
	m.activePanels.Set(float64(count))
}

// RecordPlacement records a panel placement in the given display mode.
func (m *PanelMetrics) RecordPlacement(mode string) {
	m.placements.WithLabelValues(mode).Inc()
}

// RecordRemoval records a panel removal and its trigger.
func (m *PanelMetrics) RecordRemoval(reason string) {
	m.removals.WithLabelValues(reason).Inc()
}

// RecordReposition records a panel position update and its source.
func (m *PanelMetrics) RecordReposition(source string) {
	m.repositions.WithLabelValues(source).Inc()
}

// RecordComparisonTransition records entering or exiting comparison mode.
func (m *PanelMetrics) RecordComparisonTransition(transition string) {
	m.comparisons.WithLabelValues(transition).Inc()
}

// RecordOrientationSample records a processed or suppressed orientation sample.
func (m *PanelMetrics) RecordOrientationSample(status string) {
	m.orientation.WithLabelValues(status).Inc()
}

// RecordBringToFront records a bring-to-front request.
func (m *PanelMetrics) RecordBringToFront() {
	m.frontRequests.Inc()
}
