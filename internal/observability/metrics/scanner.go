package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ScannerMetrics contains Prometheus metrics for barcode and vision
// detection handling.
type ScannerMetrics struct {
	registry *prometheus.Registry

	detections    *prometheus.CounterVec
	suppressed    *prometheus.CounterVec
	rearms        *prometheus.CounterVec
	scannerState  prometheus.Gauge
	pipelineTime  *prometheus.HistogramVec
	visionFrames  *prometheus.CounterVec
	visionSkipped *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewScannerMetrics creates and registers new scanner metrics.
func NewScannerMetrics(registry *prometheus.Registry) (*ScannerMetrics, error) {
	m := &ScannerMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ScannerMetrics) initMetrics() error {
	m.detections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanner_detections_total",
			Help: "Total number of accepted detection events",
		},
		[]string{"source"},
	)

	m.suppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanner_detections_suppressed_total",
			Help: "Total number of detection events ignored while the scanner was paused",
		},
		[]string{"source"},
	)

	m.rearms = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanner_rearms_total",
			Help: "Total number of scanner re-arm transitions",
		},
		[]string{"reason"},
	)

	m.scannerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scanner_state",
			Help: "Current scanner state (0=scanning, 1=paused, 2=rearming)",
		},
	)

	m.pipelineTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scanner_pipeline_duration_seconds",
			Help:    "Duration from detection to panel placement decision",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	m.visionFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanner_vision_frames_total",
			Help: "Total number of vision frames classified",
		},
		[]string{"status"},
	)

	m.visionSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanner_vision_frames_skipped_total",
			Help: "Total number of vision frames skipped before classification",
		},
		[]string{"reason"},
	)

	m.collectors = []prometheus.Collector{
		m.detections,
		m.suppressed,
		m.rearms,
		m.scannerState,
		m.pipelineTime,
		m.visionFrames,
		m.visionSkipped,
	}

	return nil
}

// Describe implements the Collector interface
func (m *ScannerMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *ScannerMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordDetection records an accepted detection from the given source.
func (m *ScannerMetrics) RecordDetection(source string) {
	m.detections.WithLabelValues(source).Inc()
}

// RecordSuppressed records a detection ignored while paused.
func (m *ScannerMetrics) RecordSuppressed(source string) {
	m.suppressed.WithLabelValues(source).Inc()
}

// RecordRearm records a scanner re-arm transition and its trigger.
func (m *ScannerMetrics) RecordRearm(reason string) {
	m.rearms.WithLabelValues(reason).Inc()
}

// UpdateScannerState updates the scanner state gauge.
func (m *ScannerMetrics) UpdateScannerState(state int) {
	m.scannerState.Set(float64(state))
}

// RecordPipelineDuration records detection-to-placement latency in seconds.
func (m *ScannerMetrics) RecordPipelineDuration(source string, seconds float64) {
	m.pipelineTime.WithLabelValues(source).Observe(seconds)
}

// RecordVisionFrame records a classified vision frame and its status.
func (m *ScannerMetrics) RecordVisionFrame(status string) {
	m.visionFrames.WithLabelValues(status).Inc()
}

// RecordVisionSkipped records a vision frame dropped before classification.
func (m *ScannerMetrics) RecordVisionSkipped(reason string) {
	m.visionSkipped.WithLabelValues(reason).Inc()
}
