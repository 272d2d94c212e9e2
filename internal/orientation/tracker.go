// Package orientation repositions panels from device-orientation deltas to
// simulate spatial persistence when true AR tracking is unavailable.
package orientation

import (
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

// Package-level logger specific to the orientation service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "orientation.log")
	initialLevel := slog.LevelDebug
	serviceLevelVar.Set(initialLevel)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "orientation", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize orientation file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "orientation")
		closeLogger = func() error { return nil }
	}
}

// State is the permission and activity state of the tracker.
type State string

const (
	// StateUninitialized means no permission flow has started yet.
	StateUninitialized State = "uninitialized"
	// StateAwaitingPermission means the platform requires an explicit
	// consent gesture before motion events flow.
	StateAwaitingPermission State = "awaiting_permission"
	// StateActive means samples are being processed.
	StateActive State = "active"
	// StateDisabled means permission was denied or the feature was turned
	// off. Samples are dropped.
	StateDisabled State = "disabled"
)

// Sample is one device-orientation reading in degrees. Only deltas between
// consecutive samples matter, never absolute values.
type Sample struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// Tracker consumes orientation samples and shifts every registered panel
// in 2D fallback mode. Gamma tilt drives horizontal movement at full
// sensitivity; beta tilt drives vertical movement at half weight. Alpha is
// read but unused, so compass yaw never swings panels.
type Tracker struct {
	mu          sync.Mutex
	state       State
	last        *Sample
	registry    *panel.Registry
	host        *panel.ScreenHost
	sensitivity float64
	noise       float64
	metrics     *metrics.PanelMetrics
}

// NewTracker creates a tracker over the registry. host may be nil in AR
// mode, which leaves the tracker inert.
func NewTracker(settings *conf.OrientationSettings, registry *panel.Registry, host *panel.ScreenHost, m *metrics.PanelMetrics) *Tracker {
	return &Tracker{
		state:       StateUninitialized,
		registry:    registry,
		host:        host,
		sensitivity: settings.Sensitivity,
		noise:       settings.NoiseThreshold,
		metrics:     m,
	}
}

// State returns the current tracker state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// RequirePermission moves the tracker into the consent-pending state.
// Valid only before any other transition.
func (t *Tracker) RequirePermission() error {
	return t.transition(StateUninitialized, StateAwaitingPermission)
}

// GrantPermission activates the tracker after user consent.
func (t *Tracker) GrantPermission() error {
	return t.transition(StateAwaitingPermission, StateActive)
}

// DenyPermission permanently disables the tracker after the user declined
// motion access.
func (t *Tracker) DenyPermission() error {
	return t.transition(StateAwaitingPermission, StateDisabled)
}

// Activate enables the tracker directly on platforms with no consent step.
func (t *Tracker) Activate() error {
	return t.transition(StateUninitialized, StateActive)
}

// Disable turns the tracker off from any state.
func (t *Tracker) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateDisabled
	t.last = nil
}

func (t *Tracker) transition(from, to State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != from {
		return errors.Newf("invalid orientation state transition from %s to %s", t.state, to).
			Category(errors.CategoryState).
			Context("from", string(t.state)).
			Context("to", string(to)).
			Component("orientation").
			Build()
	}

	logger.Debug("orientation state transition", "from", from, "to", to)
	t.state = to
	return nil
}

// HandleSample processes one orientation reading. It returns true when
// panel positions changed.
//
// The first sample after activation only seeds the delta baseline.
// Samples with all deltas below the noise threshold are dropped. The
// tracker is inert while comparison mode owns panel positions and in AR
// mode (nil host); the comparison check holds the registry lock across
// the panel mutations.
func (t *Tracker) HandleSample(s Sample) bool {
	t.mu.Lock()

	if t.state != StateActive {
		t.mu.Unlock()
		return false
	}

	if t.last == nil {
		t.last = &s
		t.mu.Unlock()
		return false
	}

	dBeta := s.Beta - t.last.Beta
	dGamma := s.Gamma - t.last.Gamma
	dAlpha := s.Alpha - t.last.Alpha
	t.last = &s

	if math.Abs(dAlpha) < t.noise && math.Abs(dBeta) < t.noise && math.Abs(dGamma) < t.noise {
		t.mu.Unlock()
		if t.metrics != nil {
			t.metrics.RecordOrientationSample("suppressed")
		}
		return false
	}

	sensitivity := t.sensitivity
	host := t.host
	t.mu.Unlock()

	if host == nil {
		if t.metrics != nil {
			t.metrics.RecordOrientationSample("inert")
		}
		return false
	}

	moved := false
	applied := t.registry.ForEachInteractive(func(p *panel.Panel) {
		if p.Position.Screen == nil || p.Removing {
			return
		}
		next := panel.ScreenPosition{
			Left: p.Position.Screen.Left - dGamma*sensitivity,
			Top:  p.Position.Screen.Top + dBeta*sensitivity/2,
		}
		next = host.Clamp(next)
		if next == *p.Position.Screen {
			return
		}
		p.Position.Screen.Left = next.Left
		p.Position.Screen.Top = next.Top

		// The drifted position becomes the new home so comparison mode
		// restores panels where the user last saw them.
		home := p.Position.Clone()
		p.Home = &home
		moved = true
	})
	if !applied {
		if t.metrics != nil {
			t.metrics.RecordOrientationSample("inert")
		}
		return false
	}

	if t.metrics != nil {
		t.metrics.RecordOrientationSample("applied")
	}

	return moved
}
