package panel

import (
	"math/rand"
	"sync"

	"github.com/nutriscan/arnutri-go/internal/conf"
	"github.com/nutriscan/arnutri-go/internal/errors"
	"github.com/nutriscan/arnutri-go/internal/nutrition"
)

// Host computes where a new panel appears. One implementation exists per
// display mode and is selected once at startup.
type Host interface {
	Mode() Mode
	// Ready reports whether the host can place panels yet.
	Ready() bool
	NextPosition(existingPanels int) Position
}

// ARPoseHost anchors panels at the latest hit-test pose, or a fixed
// distance in front of the camera when no hit test is available.
type ARPoseHost struct {
	mu         sync.Mutex
	hitPose    *Pose
	cameraPose Pose
	distance   float64
}

// NewARPoseHost creates an AR host placing unanchored panels distance
// meters in front of the camera.
func NewARPoseHost(distance float64) *ARPoseHost {
	return &ARPoseHost{
		distance:   distance,
		cameraPose: Pose{QW: 1},
	}
}

// SetHitPose records the latest hit-test pose. A nil pose clears it.
func (h *ARPoseHost) SetHitPose(p *Pose) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p == nil {
		h.hitPose = nil
		return
	}
	pose := *p
	h.hitPose = &pose
}

// SetCameraPose records the current camera transform.
func (h *ARPoseHost) SetCameraPose(p Pose) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cameraPose = p
}

// Mode implements Host.
func (h *ARPoseHost) Mode() Mode { return ModeAR }

// Ready implements Host. An AR session always has a camera transform.
func (h *ARPoseHost) Ready() bool { return true }

// NextPosition implements Host. Panel count is irrelevant in AR mode; the
// scene itself separates panels.
func (h *ARPoseHost) NextPosition(int) Position {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.hitPose != nil {
		pose := *h.hitPose
		return Position{Pose: &pose}
	}

	// No hit test: project forward from the camera along its view axis.
	fx, fy, fz := rotateForward(h.cameraPose)
	pose := Pose{
		X:  h.cameraPose.X + fx*h.distance,
		Y:  h.cameraPose.Y + fy*h.distance,
		Z:  h.cameraPose.Z + fz*h.distance,
		QX: h.cameraPose.QX,
		QY: h.cameraPose.QY,
		QZ: h.cameraPose.QZ,
		QW: h.cameraPose.QW,
	}
	return Position{Pose: &pose}
}

// rotateForward applies the pose's orientation quaternion to the camera
// forward vector (0, 0, -1).
func rotateForward(p Pose) (x, y, z float64) {
	qx, qy, qz, qw := p.QX, p.QY, p.QZ, p.QW
	x = -2 * (qx*qz + qw*qy)
	y = -2 * (qy*qz - qw*qx)
	z = -(1 - 2*(qx*qx+qy*qy))
	return x, y, z
}

// ScreenHost places panels as 2D overlays: horizontally centered, at a
// fixed fraction of the viewport height, with bounded random jitter when
// other panels already exist so stacked panels stay distinguishable.
type ScreenHost struct {
	mu            sync.Mutex
	viewportW     float64
	viewportH     float64
	panelW        float64
	panelH        float64
	margin        float64
	jitter        float64
	verticalRatio float64
	rng           *rand.Rand
}

// NewScreenHost creates a screen host from display settings.
func NewScreenHost(display *conf.DisplaySettings, seed int64) *ScreenHost {
	return &ScreenHost{
		viewportW:     display.ViewportW,
		viewportH:     display.ViewportH,
		panelW:        display.Panel.Width,
		panelH:        display.Panel.Height,
		margin:        display.Margin,
		jitter:        display.Jitter,
		verticalRatio: display.VerticalRatio,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

// SetViewport updates the viewport dimensions, for example after a device
// rotation.
func (h *ScreenHost) SetViewport(width, height float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.viewportW = width
	h.viewportH = height
}

// Viewport returns the current viewport dimensions.
func (h *ScreenHost) Viewport() (width, height float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.viewportW, h.viewportH
}

// PanelSize returns the nominal panel dimensions.
func (h *ScreenHost) PanelSize() (width, height float64) {
	return h.panelW, h.panelH
}

// Mode implements Host.
func (h *ScreenHost) Mode() Mode { return ModeScreen }

// Ready implements Host. The host cannot place panels before the client
// reported its viewport.
func (h *ScreenHost) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.viewportW > 0 && h.viewportH > 0
}

// NextPosition implements Host.
func (h *ScreenHost) NextPosition(existingPanels int) Position {
	h.mu.Lock()
	defer h.mu.Unlock()

	pos := ScreenPosition{
		Left: (h.viewportW - h.panelW) / 2,
		Top:  h.viewportH * h.verticalRatio,
	}

	if existingPanels > 0 {
		pos.Left += (h.rng.Float64()*2 - 1) * h.jitter
		pos.Top += (h.rng.Float64()*2 - 1) * h.jitter
	}

	pos = h.clampLocked(pos)
	return Position{Screen: &pos}
}

// Clamp constrains a screen position so the full panel rectangle stays
// inside the viewport with the configured margin.
func (h *ScreenHost) Clamp(pos ScreenPosition) ScreenPosition {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clampLocked(pos)
}

func (h *ScreenHost) clampLocked(pos ScreenPosition) ScreenPosition {
	pos.Left = clamp(pos.Left, h.margin, h.viewportW-h.margin-h.panelW)
	pos.Top = clamp(pos.Top, h.margin, h.viewportH-h.margin-h.panelH)
	return pos
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Placement combines a host with the registry: it computes the initial
// position for a record's panel and registers it. The clamped position
// becomes the panel's home for later restoration after comparison mode.
type Placement struct {
	host     Host
	registry *Registry
}

// NewPlacement creates a placement policy over the given host and
// registry.
func NewPlacement(host Host, registry *Registry) *Placement {
	return &Placement{host: host, registry: registry}
}

// Host returns the underlying display-mode host.
func (p *Placement) Host() Host {
	return p.host
}

// Place creates and registers a panel for the record. A host that is not
// ready yields a placement error; resolution succeeded, the panel is
// simply skipped.
func (p *Placement) Place(record *nutrition.Record) (*Panel, error) {
	if !p.host.Ready() {
		return nil, errors.Newf("display host not ready to place panels").
			Category(errors.CategoryPlacement).
			Context("mode", string(p.host.Mode())).
			Component("panel").
			Build()
	}
	pos := p.host.NextPosition(p.registry.Len())
	return p.registry.Add(record, pos), nil
}
