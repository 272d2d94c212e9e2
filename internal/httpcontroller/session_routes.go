package httpcontroller

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nutriscan/arnutri-go/internal/orientation"
)

// Orientation permission actions accepted by the orientation endpoint.
const (
	orientationActionRequire  = "require_permission"
	orientationActionGrant    = "grant"
	orientationActionDeny     = "deny"
	orientationActionActivate = "activate"
	orientationActionDisable  = "disable"
)

type orientationRequest struct {
	Action string              `json:"action,omitempty"`
	Sample *orientation.Sample `json:"sample,omitempty"`
}

type orientationResponse struct {
	State string `json:"state"`
	Moved bool   `json:"moved"`
}

// handleOrientation drives the orientation tracker: permission flow
// transitions via the action field, or one device-orientation sample.
func (s *Server) handleOrientation(ctx echo.Context) error {
	var req orientationRequest
	if err := ctx.Bind(&req); err != nil {
		return s.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	if req.Sample != nil {
		moved := s.Tracker.HandleSample(*req.Sample)
		return ctx.JSON(http.StatusOK, orientationResponse{
			State: string(s.Tracker.State()),
			Moved: moved,
		})
	}

	var err error
	switch req.Action {
	case orientationActionRequire:
		err = s.Tracker.RequirePermission()
	case orientationActionGrant:
		err = s.Tracker.GrantPermission()
	case orientationActionDeny:
		err = s.Tracker.DenyPermission()
	case orientationActionActivate:
		err = s.Tracker.Activate()
	case orientationActionDisable:
		s.Tracker.Disable()
	default:
		return s.HandleError(ctx, nil, "Unknown orientation action", http.StatusBadRequest)
	}
	if err != nil {
		return s.HandleError(ctx, err, "Orientation state transition rejected", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, orientationResponse{
		State: string(s.Tracker.State()),
	})
}

// handleEnterCompare arranges all panels into the comparison grid.
func (s *Server) handleEnterCompare(ctx echo.Context) error {
	if err := s.Compare.Enter(); err != nil {
		return s.HandleError(ctx, err, "Failed to enter comparison mode", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, panelsResponse{
		Panels:           s.Registry.Snapshot(),
		ComparisonActive: true,
	})
}

// handleExitCompare restores panels to their home positions.
func (s *Server) handleExitCompare(ctx echo.Context) error {
	s.Compare.Exit()

	return ctx.JSON(http.StatusOK, panelsResponse{
		Panels:           s.Registry.Snapshot(),
		ComparisonActive: false,
	})
}
