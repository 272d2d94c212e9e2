// Package session wires the scanner core together and runs it until a
// termination signal arrives.
package session

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nutriscan/arnutri-go/internal/compare"
	"github.com/nutriscan/arnutri-go/internal/conf"
	"github.com/nutriscan/arnutri-go/internal/httpcontroller"
	"github.com/nutriscan/arnutri-go/internal/logging"
	"github.com/nutriscan/arnutri-go/internal/notification"
	"github.com/nutriscan/arnutri-go/internal/observability"
	"github.com/nutriscan/arnutri-go/internal/observability/metrics"
	"github.com/nutriscan/arnutri-go/internal/offacts"
	"github.com/nutriscan/arnutri-go/internal/orientation"
	"github.com/nutriscan/arnutri-go/internal/panel"
	"github.com/nutriscan/arnutri-go/internal/resolver"
	"github.com/nutriscan/arnutri-go/internal/scanner"
	"github.com/nutriscan/arnutri-go/internal/vision"
)

// shutdownTimeout bounds how long the HTTP server may take to drain
// in-flight requests on exit.
const shutdownTimeout = 10 * time.Second

// Realtime starts the full scanner session: product resolution, panel
// tracking, the HTTP API, and optionally the telemetry endpoint. It blocks
// until SIGINT or SIGTERM.
func Realtime(settings *conf.Settings) error {
	logger := logging.ForService("session")

	client, err := offacts.NewClient(offacts.Config{
		BaseURL:     settings.Lookup.BaseURL,
		Timeout:     settings.Lookup.Timeout,
		RateLimitMS: settings.Lookup.RateLimitMS,
		UserAgent:   settings.Lookup.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize product lookup client: %w", err)
	}

	var obs *observability.Metrics
	var resolverMetrics *metrics.ResolverMetrics
	var scannerMetrics *metrics.ScannerMetrics
	var panelMetrics *metrics.PanelMetrics
	if settings.Telemetry.Enabled {
		obs, err = observability.NewMetrics()
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}
		resolverMetrics = obs.Resolver
		scannerMetrics = obs.Scanner
		panelMetrics = obs.Panel
	}

	res := resolver.New(resolver.NewProductCache(), client, resolverMetrics)

	notifications := notification.NewService(&notification.ServiceConfig{
		Debug:              settings.Debug,
		MaxNotifications:   notification.DefaultMaxNotifications,
		CleanupInterval:    notification.DefaultCleanupInterval,
		RateLimitWindow:    time.Minute,
		RateLimitMaxEvents: notification.DefaultRateLimitMaxEvents,
	})

	registry := panel.NewRegistry(panelMetrics)

	var host panel.Host
	var screenHost *panel.ScreenHost
	if settings.Display.Mode == string(panel.ModeAR) {
		host = panel.NewARPoseHost(settings.Display.ARDistance)
	} else {
		screenHost = panel.NewScreenHost(&settings.Display, time.Now().UnixNano())
		host = screenHost
	}
	placement := panel.NewPlacement(host, registry)

	// The rendering side gets the configured fade before a removed panel
	// is dropped for good.
	registry.SetRemovalNotifier(func(ids []int64) {
		for _, id := range ids {
			id := id
			time.AfterFunc(settings.Display.RemovalFade, func() {
				registry.FinalizeRemoval(id)
			})
		}
	})

	sc := scanner.New(&settings.Scanner, res, placement, notifications, nil, scannerMetrics)
	tracker := orientation.NewTracker(&settings.Orientation, registry, screenHost, panelMetrics)
	engine := compare.NewEngine(&settings.Compare, registry, screenHost, notifications, panelMetrics)

	var coordinator *vision.Coordinator
	if settings.Scanner.Vision.Enabled {
		coordinator = vision.NewCoordinator(&settings.Scanner.Vision, nil, sc, notifications, scannerMetrics)
	}

	var wg sync.WaitGroup
	quitChan := make(chan struct{})

	startTelemetryEndpoint(&wg, settings, obs, quitChan)

	httpServer := httpcontroller.New(settings, sc, registry, screenHost, tracker, engine, coordinator, notifications)
	if settings.WebServer.Enabled {
		httpServer.Start()
		fmt.Printf("HTTP API listening on port %s\n", settings.WebServer.Port)
	}

	logger.Info("session started",
		"display_mode", settings.Display.Mode,
		"vision_enabled", settings.Scanner.Vision.Enabled,
		"telemetry_enabled", settings.Telemetry.Enabled)

	monitorCtrlC(quitChan)
	<-quitChan

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if settings.WebServer.Enabled {
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Warn("HTTP server shutdown failed", "error", err)
		}
	}

	sc.Stop()
	notifications.Stop()
	wg.Wait()

	logger.Info("session stopped")
	return nil
}

func startTelemetryEndpoint(wg *sync.WaitGroup, settings *conf.Settings, obs *observability.Metrics, quitChan chan struct{}) {
	if !settings.Telemetry.Enabled {
		return
	}

	endpoint, err := observability.NewEndpoint(settings, obs)
	if err != nil {
		logging.Warn("failed to initialize telemetry endpoint", "error", err)
		return
	}
	if endpoint != nil {
		endpoint.Start(wg, quitChan)
	}
}

// monitorCtrlC closes quitChan when SIGINT or SIGTERM arrives.
func monitorCtrlC(quitChan chan struct{}) {
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		<-sigChan

		fmt.Println("\nReceived shutdown signal, stopping session...")
		close(quitChan)
	}()
}
