package vision

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
	"github.com/nutriscan/arnutri-go/internal/observability/metrics"
	"github.com/nutriscan/arnutri-go/internal/panel"
)

// Package-level logger specific to the vision service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "vision.log")
	initialLevel := slog.LevelDebug
	serviceLevelVar.Set(initialLevel)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "vision", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize vision file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "vision")
		closeLogger = func() error { return nil }
	}
}

// Searcher resolves a food name into a placed panel. The scanner pipeline
// implements it.
type Searcher interface {
	Search(ctx context.Context, term string) (*panel.Panel, error)
}

// StatusNotifier receives user-facing recognition status messages.
type StatusNotifier interface {
	ScanStatus(message string)
}

// FrameSource provides camera frames for background recognition.
type FrameSource interface {
	Capture(ctx context.Context) ([]byte, error)
}

// Coordinator runs image classification over camera frames. Background
// frames only warm the latest prediction set; a manual capture surfaces
// the top food prediction and searches for it, throttled to one surfaced
// recognition per minimum interval.
type Coordinator struct {
	mu              sync.Mutex
	lastRecognition time.Time
	lastPredictions []Prediction

	classifier Classifier
	searcher   Searcher
	notifier   StatusNotifier
	settings   conf.VisionSettings
	metrics    *metrics.ScannerMetrics
}

// NewCoordinator creates a vision coordinator. notifier and metrics may be
// nil.
func NewCoordinator(settings *conf.VisionSettings, classifier Classifier, searcher Searcher, notifier StatusNotifier, m *metrics.ScannerMetrics) *Coordinator {
	return &Coordinator{
		classifier: classifier,
		searcher:   searcher,
		notifier:   notifier,
		settings:   *settings,
		metrics:    m,
	}
}

// HandleFrame classifies one frame. When manual is false the predictions
// are stored for later inspection and nothing is surfaced. When manual is
// true the top food prediction is searched and a panel placed.
func (c *Coordinator) HandleFrame(ctx context.Context, frame []byte, manual bool) (*panel.Panel, error) {
	if manual && !c.allowRecognition() {
		if c.metrics != nil {
			c.metrics.RecordVisionSkipped("throttled")
		}
		return nil, nil
	}

	predictions, err := c.classifier.Classify(ctx, frame)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordVisionFrame("error")
		}
		if manual && c.notifier != nil {
			c.notifier.ScanStatus("Recognition error. Try again.")
		}
		return nil, errors.Newf("image classification failed: %w", err).
			Category(errors.CategoryGeneric).
			Component("vision").
			Build()
	}

	return c.HandlePredictions(ctx, predictions, manual)
}

// HandlePredictions consumes an already-classified prediction set, for
// clients that run the image model themselves and only hand over the
// labels.
func (c *Coordinator) HandlePredictions(ctx context.Context, predictions []Prediction, manual bool) (*panel.Panel, error) {
	if manual && !c.allowRecognition() {
		if c.metrics != nil {
			c.metrics.RecordVisionSkipped("throttled")
		}
		return nil, nil
	}

	c.mu.Lock()
	c.lastPredictions = predictions
	c.mu.Unlock()

	if !manual {
		if c.metrics != nil {
			c.metrics.RecordVisionFrame("background")
		}
		return nil, nil
	}

	if len(predictions) == 0 {
		if c.metrics != nil {
			c.metrics.RecordVisionFrame("empty")
		}
		if c.notifier != nil {
			c.notifier.ScanStatus("Recognition failed. Try again.")
		}
		return nil, nil
	}

	food, ok := FirstFood(predictions)
	if !ok {
		if c.metrics != nil {
			c.metrics.RecordVisionFrame("no_food")
		}
		if c.notifier != nil {
			c.notifier.ScanStatus("No food item detected. Try again.")
		}
		return nil, nil
	}

	c.mu.Lock()
	c.lastRecognition = time.Now()
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordVisionFrame("food")
	}
	if c.notifier != nil {
		c.notifier.ScanStatus(fmt.Sprintf("Detected: %s (%d%%)", food.ClassName, int(food.Probability*100+0.5)))
	}

	logger.Info("food item recognized",
		"label", food.ClassName,
		"probability", food.Probability)

	return c.searcher.Search(ctx, food.ClassName)
}

// allowRecognition enforces the minimum spacing between surfaced
// recognitions.
func (c *Coordinator) allowRecognition() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastRecognition) >= c.settings.MinInterval
}

// LastPredictions returns the most recent classification results.
func (c *Coordinator) LastPredictions() []Prediction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Prediction, len(c.lastPredictions))
	copy(out, c.lastPredictions)
	return out
}

// Run captures and classifies frames at the configured cadence until the
// context is cancelled. Background frames never surface results.
func (c *Coordinator) Run(ctx context.Context, source FrameSource) {
	ticker := time.NewTicker(c.settings.CaptureEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := source.Capture(ctx)
			if err != nil {
				if c.metrics != nil {
					c.metrics.RecordVisionSkipped("capture_error")
				}
				logger.Debug("frame capture failed", "error", err)
				continue
			}
			if _, err := c.HandleFrame(ctx, frame, false); err != nil {
				logger.Debug("background classification failed", "error", err)
			}
		}
	}
}
