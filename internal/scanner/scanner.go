// Package scanner coordinates barcode detection with product resolution
// and panel placement. After every detection the decoder is paused and
// re-armed on a delay, so a barcode held in front of the camera does not
// flood the pipeline with duplicates.
package scanner

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/nutriscan/arnutri-go/internal/conf"
	"github.com/nutriscan/arnutri-go/internal/errors"
	"github.com/nutriscan/arnutri-go/internal/logging"
	"github.com/nutriscan/arnutri-go/internal/nutrition"
	"github.com/nutriscan/arnutri-go/internal/observability/metrics"
	"github.com/nutriscan/arnutri-go/internal/panel"
	"github.com/nutriscan/arnutri-go/internal/resolver"
)

// Package-level logger specific to the scanner service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "scanner.log")
	initialLevel := slog.LevelDebug
	serviceLevelVar.Set(initialLevel)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "scanner", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize scanner file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "scanner")
		closeLogger = func() error { return nil }
	}
}

// State is the detection gate state.
type State string

const (
	// StateScanning accepts detections.
	StateScanning State = "scanning"
	// StatePaused means a detection is being resolved; further detections
	// are dropped.
	StatePaused State = "paused"
	// StateRearming means resolution finished and the re-arm timer is
	// running.
	StateRearming State = "rearming"
)

// Gauge values for the scanner state metric.
var stateGauge = map[State]int{
	StateScanning: 0,
	StatePaused:   1,
	StateRearming: 2,
}

// Detector is the barcode decoder control surface. Implementations relay
// pause and resume to the browser-side decoder.
type Detector interface {
	Pause()
	Resume()
}

// Notifier receives user-facing scan status messages.
type Notifier interface {
	ScanStatus(message string)
	Error(title, message string)
}

// Scanner drives the detection pipeline: gate, resolve, place, re-arm.
type Scanner struct {
	mu         sync.Mutex
	state      State
	visionMode bool
	rearmTimer *time.Timer

	detector  Detector
	resolver  *resolver.Resolver
	placement *panel.Placement
	notifier  Notifier
	settings  conf.ScannerSettings
	metrics   *metrics.ScannerMetrics
}

// New creates a scanner in the scanning state. detector, notifier, and
// metrics may be nil.
func New(settings *conf.ScannerSettings, res *resolver.Resolver, placement *panel.Placement, notifier Notifier, detector Detector, m *metrics.ScannerMetrics) *Scanner {
	return &Scanner{
		state:     StateScanning,
		detector:  detector,
		resolver:  res,
		placement: placement,
		notifier:  notifier,
		settings:  *settings,
		metrics:   m,
	}
}

// State returns the current gate state.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HandleDetection processes one decoded barcode. Detections arriving
// while the scanner is paused or re-arming are dropped.
//
// A found product places a panel. An unknown barcode emits a status
// message and places nothing. A failed lookup also places nothing and
// re-arms on the shorter error delay; only text searches fall back to
// estimate panels.
func (s *Scanner) HandleDetection(ctx context.Context, code string) (*panel.Panel, error) {
	if !s.beginDetection(metrics.SourceBarcode) {
		return nil, errors.Newf("scanner is not accepting detections").
			Category(errors.CategoryState).
			Context("barcode", code).
			Component("scanner").
			Build()
	}

	start := time.Now()
	if s.notifier != nil {
		s.notifier.ScanStatus("Barcode detected: " + code)
	}
	logger.Info("barcode detected", "barcode", code)

	res := s.resolver.Resolve(ctx, code, resolver.KindBarcode)

	var placed *panel.Panel
	switch res.Outcome {
	case resolver.OutcomeNotFound:
		if s.notifier != nil {
			s.notifier.ScanStatus("Product not found for barcode: " + code)
		}
		s.scheduleRearm(s.settings.RearmDelay, "not_found")

	case resolver.OutcomeEstimated:
		// A transient lookup failure is not a product. The estimate record
		// is discarded; the user retries once the decoder re-arms.
		if s.notifier != nil {
			s.notifier.ScanStatus("Error fetching nutrition data.")
			s.notifier.Error("Lookup", "Error fetching nutrition data.")
		}
		s.scheduleRearm(s.settings.RearmOnError, "lookup_error")

	default:
		placed = s.place(res.Record)
		if placed != nil && s.notifier != nil {
			s.notifier.ScanStatus("Found: " + res.Record.Title)
		}
		s.scheduleRearm(s.settings.RearmDelay, "resolved")
	}

	if s.metrics != nil {
		s.metrics.RecordPipelineDuration(metrics.SourceBarcode, time.Since(start).Seconds())
	}

	return placed, nil
}

// Search resolves a free-text food name and always places a panel, falling
// back to an estimate when no product matches. Text searches do not gate
// the barcode decoder.
func (s *Scanner) Search(ctx context.Context, term string) (*panel.Panel, error) {
	if term == "" {
		return nil, errors.Newf("empty search term").
			Category(errors.CategoryValidation).
			Component("scanner").
			Build()
	}

	normalized := resolver.NormalizeTerm(term)
	if s.notifier != nil {
		s.notifier.ScanStatus(fmt.Sprintf("Searching for: %s...", normalized))
	}
	if s.metrics != nil {
		s.metrics.RecordDetection(metrics.SourceText)
	}

	start := time.Now()
	res := s.resolver.Resolve(ctx, term, resolver.KindText)

	placed := s.place(res.Record)

	if placed != nil && s.notifier != nil {
		if res.Record.IsEstimate {
			s.notifier.ScanStatus("No product found for: " + normalized)
		} else {
			s.notifier.ScanStatus("Found: " + res.Record.Title)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordPipelineDuration(metrics.SourceText, time.Since(start).Seconds())
	}

	logger.Info("text search resolved",
		"term", normalized,
		"outcome", res.Outcome,
		"placed", placed != nil)

	return placed, nil
}

// place registers a panel for the record. A placement failure surfaces an
// error notification and yields no panel; the resolution itself is not
// retried.
func (s *Scanner) place(record *nutrition.Record) *panel.Panel {
	placed, err := s.placement.Place(record)
	if err != nil {
		logger.Warn("panel placement failed", "source_id", record.SourceID, "error", err)
		if s.notifier != nil {
			s.notifier.Error("Display", "Error displaying product panel.")
		}
		return nil
	}
	return placed
}

// SetVisionMode toggles the vision recognition mode. While active the
// barcode decoder is paused and detections are dropped; leaving vision
// mode resumes the decoder.
func (s *Scanner) SetVisionMode(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.visionMode == enabled {
		return
	}
	s.visionMode = enabled

	if s.detector != nil {
		if enabled {
			s.detector.Pause()
		} else if s.state == StateScanning {
			s.detector.Resume()
		}
	}
	logger.Info("vision mode toggled", "enabled", enabled)
}

// VisionMode reports whether vision recognition mode is active.
func (s *Scanner) VisionMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visionMode
}

// beginDetection transitions scanning to paused. It returns false when the
// gate is closed.
func (s *Scanner) beginDetection(source string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateScanning || s.visionMode {
		if s.metrics != nil {
			s.metrics.RecordSuppressed(source)
		}
		return false
	}

	s.setStateLocked(StatePaused)
	if s.detector != nil {
		s.detector.Pause()
	}
	if s.metrics != nil {
		s.metrics.RecordDetection(source)
	}
	return true
}

// scheduleRearm starts the delayed transition back to scanning.
func (s *Scanner) scheduleRearm(delay time.Duration, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setStateLocked(StateRearming)
	if s.rearmTimer != nil {
		s.rearmTimer.Stop()
	}
	s.rearmTimer = time.AfterFunc(delay, func() {
		s.rearm(reason)
	})

	logger.Debug("re-arm scheduled", "delay", delay, "reason", reason)
}

func (s *Scanner) rearm(reason string) {
	s.mu.Lock()
	if s.state != StateRearming {
		s.mu.Unlock()
		return
	}
	s.setStateLocked(StateScanning)
	detector := s.detector
	if s.visionMode {
		detector = nil
	}
	s.mu.Unlock()

	if detector != nil {
		detector.Resume()
	}
	if s.metrics != nil {
		s.metrics.RecordRearm(reason)
	}
	logger.Debug("scanner re-armed", "reason", reason)
}

func (s *Scanner) setStateLocked(state State) {
	s.state = state
	if s.metrics != nil {
		s.metrics.UpdateScannerState(stateGauge[state])
	}
}

// Stop cancels any pending re-arm timer.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rearmTimer != nil {
		s.rearmTimer.Stop()
		s.rearmTimer = nil
	}
}
