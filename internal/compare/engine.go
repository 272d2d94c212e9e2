// Package compare arranges panels into a deterministic grid for
// side-by-side comparison and restores their home positions on exit.
package compare

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"path/filepath"
	"sync"

	"github.com/nutriscan/arnutri-go/internal/conf"
	"github.com/nutriscan/arnutri-go/internal/errors"
	"github.com/nutriscan/arnutri-go/internal/logging"
	"github.com/nutriscan/arnutri-go/internal/observability/metrics"
	"github.com/nutriscan/arnutri-go/internal/panel"
)

// Package-level logger specific to the compare service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "compare.log")
	initialLevel := slog.LevelDebug
	serviceLevelVar.Set(initialLevel)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "compare", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize compare file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "compare")
		closeLogger = func() error { return nil }
	}
}

// compareZBase lifts comparison panels above any interactively stacked
// panel.
const compareZBase = 100

// Notifier receives user-facing status messages from the engine.
type Notifier interface {
	Info(title, message string)
	Warn(title, message string)
}

// Engine toggles comparison mode. While active it is the only writer of
// panel positions; drag and orientation updates are suppressed through the
// registry flag.
type Engine struct {
	mu       sync.Mutex
	active   bool
	registry *panel.Registry
	host     *panel.ScreenHost
	settings conf.CompareSettings
	notifier Notifier
	metrics  *metrics.PanelMetrics
}

// NewEngine creates a comparison engine. notifier and metrics may be nil.
func NewEngine(settings *conf.CompareSettings, registry *panel.Registry, host *panel.ScreenHost, notifier Notifier, m *metrics.PanelMetrics) *Engine {
	return &Engine{
		registry: registry,
		host:     host,
		settings: *settings,
		notifier: notifier,
		metrics:  m,
	}
}

// Active reports whether comparison mode is on.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Enter arranges all panels into the comparison grid. Panels mid-removal
// are excluded from the grid and the count. Entering while already active
// is a no-op. With fewer than two panels the mode does not change and a
// notification is emitted instead.
func (e *Engine) Enter() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active {
		return nil
	}

	if e.host == nil {
		return errors.Newf("comparison mode requires screen display mode").
			Category(errors.CategoryValidation).
			Component("compare").
			Build()
	}

	count := 0
	e.registry.ForEach(func(p *panel.Panel) {
		if !p.Removing {
			count++
		}
	})
	if count < 2 {
		if e.notifier != nil {
			e.notifier.Warn("Comparison", "Need at least 2 products to compare")
		}
		return errors.Newf("comparison mode needs at least 2 panels, have %d", count).
			Category(errors.CategoryValidation).
			Context("panel_count", count).
			Component("compare").
			Build()
	}

	e.registry.SetComparisonActive(true)
	e.active = true
	e.layoutLocked(count)

	if e.notifier != nil {
		e.notifier.Info("Comparison", fmt.Sprintf("Comparing %d products", count))
	}
	if e.metrics != nil {
		e.metrics.RecordComparisonTransition("enter")
	}

	logger.Info("comparison mode entered", "panels", count)
	return nil
}

func (e *Engine) layoutLocked(count int) {
	viewportW, _ := e.host.Viewport()
	panelW, _ := e.host.PanelSize()

	columns := int(math.Floor(viewportW / panelW))
	if columns < 1 {
		columns = 1
	}
	if columns > count {
		columns = count
	}

	gridWidth := float64(columns) * panelW
	startX := (viewportW - gridWidth) / 2

	i := 0
	e.registry.ForEach(func(p *panel.Panel) {
		if p.Removing {
			return
		}
		if p.Home == nil {
			home := p.Position.Clone()
			p.Home = &home
		}

		row := i / columns
		col := i % columns
		p.Position = panel.Position{Screen: &panel.ScreenPosition{
			Left: startX + float64(col)*panelW,
			Top:  e.settings.TopOffset + float64(row)*e.settings.RowHeight,
		}}
		p.Scale = e.settings.Scale
		p.ZOrder = compareZBase + i
		i++
	})
}

// Exit restores every panel to its home position and releases the
// position lock. Exiting while inactive is a no-op.
func (e *Engine) Exit() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active {
		return
	}

	e.registry.ForEach(func(p *panel.Panel) {
		if p.Home != nil {
			p.Position = p.Home.Clone()
		}
		p.Scale = 1.0
	})

	e.registry.SetComparisonActive(false)
	e.active = false

	if e.metrics != nil {
		e.metrics.RecordComparisonTransition("exit")
	}

	logger.Info("comparison mode exited")
}

// Toggle flips comparison mode.
func (e *Engine) Toggle() error {
	if e.Active() {
		e.Exit()
		return nil
	}
	return e.Enter()
}
