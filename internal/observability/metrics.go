// Package observability provides Prometheus metrics and the telemetry
// endpoint for the scanner pipeline.
package observability

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nutriscan/arnutri-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Resolver *metrics.ResolverMetrics
	Scanner  *metrics.ScannerMetrics
	Panel    *metrics.PanelMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric
// collectors. It returns an error if any collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	resolverMetrics, err := metrics.NewResolverMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver metrics: %w", err)
	}

	scannerMetrics, err := metrics.NewScannerMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner metrics: %w", err)
	}

	panelMetrics, err := metrics.NewPanelMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create panel metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Resolver: resolverMetrics,
		Scanner:  scannerMetrics,
		Panel:    panelMetrics,
	}, nil
}

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/metrics", m.metricsHandler)
}

// metricsHandler is the HTTP handler for the /metrics endpoint.
func (m *Metrics) metricsHandler(w http.ResponseWriter, r *http.Request) {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
	h.ServeHTTP(w, r)
}
