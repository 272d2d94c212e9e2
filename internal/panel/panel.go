// Package panel tracks displayed nutrition panels: identity, position,
// stacking order, and removal lifecycle.
package panel

import (
	"time"

	"github.com/nutriscan/arnutri-go/internal/nutrition"
)

// Mode selects how panels are anchored. It is process-wide, chosen once at
// startup, never per-panel.
type Mode string

const (
	// ModeAR anchors panels at 3D poses in a tracked scene.
	ModeAR Mode = "ar"
	// ModeScreen overlays panels at 2D screen coordinates on the camera
	// feed.
	ModeScreen Mode = "screen"
)

// Pose is a 3D position with an orientation quaternion.
type Pose struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	QX float64 `json:"qx"`
	QY float64 `json:"qy"`
	QZ float64 `json:"qz"`
	QW float64 `json:"qw"`
}

// ScreenPosition is a 2D overlay position in CSS pixel coordinates.
type ScreenPosition struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// Position holds either a 3D pose or a 2D screen position depending on the
// process-wide mode. Exactly one side is set.
type Position struct {
	Pose   *Pose           `json:"pose,omitempty"`
	Screen *ScreenPosition `json:"screen,omitempty"`
}

// Clone returns a deep copy so callers can snapshot positions without
// aliasing.
func (p Position) Clone() Position {
	var out Position
	if p.Pose != nil {
		pose := *p.Pose
		out.Pose = &pose
	}
	if p.Screen != nil {
		screen := *p.Screen
		out.Screen = &screen
	}
	return out
}

// Panel is one displayed nutrition surface. IDs are unique for the process
// lifetime and never reused. A panel renders exactly one record, read-only
// after creation.
type Panel struct {
	ID        int64             `json:"id"`
	Record    *nutrition.Record `json:"record"`
	Position  Position          `json:"position"`
	Home      *Position         `json:"home,omitempty"`
	ZOrder    int               `json:"z_order"`
	Scale     float64           `json:"scale"`
	Removing  bool              `json:"removing"`
	CreatedAt time.Time         `json:"created_at"`
}
