package httpcontroller

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nutriscan/arnutri-go/internal/panel"
)

type panelsResponse struct {
	Panels           []panel.Panel `json:"panels"`
	ComparisonActive bool          `json:"comparison_active"`
}

// handleListPanels returns all live panels in insertion order.
func (s *Server) handleListPanels(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, panelsResponse{
		Panels:           s.Registry.Snapshot(),
		ComparisonActive: s.Registry.ComparisonActive(),
	})
}

// handleClearPanels removes every panel. Comparison mode is exited first
// so no grid survives an empty scene.
func (s *Server) handleClearPanels(ctx echo.Context) error {
	s.Compare.Exit()
	ids := s.Registry.RemoveAll()

	return ctx.JSON(http.StatusOK, map[string]any{
		"removed": ids,
	})
}

// handleRemovePanel removes a single panel by ID.
func (s *Server) handleRemovePanel(ctx echo.Context) error {
	id, err := parsePanelID(ctx)
	if err != nil {
		return s.HandleError(ctx, err, "Invalid panel ID", http.StatusBadRequest)
	}

	if err := s.Registry.Remove(id, panel.RemovalUser); err != nil {
		return s.HandleError(ctx, err, "Failed to remove panel", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"removed": []int64{id},
	})
}

// handleBringToFront raises a panel above all others.
func (s *Server) handleBringToFront(ctx echo.Context) error {
	id, err := parsePanelID(ctx)
	if err != nil {
		return s.HandleError(ctx, err, "Invalid panel ID", http.StatusBadRequest)
	}

	if err := s.Registry.BringToFront(id); err != nil {
		return s.HandleError(ctx, err, "Failed to bring panel to front", statusForError(err))
	}

	p, _ := s.Registry.Get(id)
	return ctx.JSON(http.StatusOK, p)
}

type repositionRequest struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// handleReposition applies a drag move. The new position is clamped to
// the viewport and becomes the panel's home.
func (s *Server) handleReposition(ctx echo.Context) error {
	id, err := parsePanelID(ctx)
	if err != nil {
		return s.HandleError(ctx, err, "Invalid panel ID", http.StatusBadRequest)
	}

	var req repositionRequest
	if err := ctx.Bind(&req); err != nil {
		return s.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	pos := panel.ScreenPosition{Left: req.Left, Top: req.Top}
	if s.ScreenHost != nil {
		pos = s.ScreenHost.Clamp(pos)
	}

	if err := s.Registry.Reposition(id, panel.Position{Screen: &pos}, panel.SourceDrag); err != nil {
		return s.HandleError(ctx, err, "Failed to reposition panel", statusForError(err))
	}

	p, _ := s.Registry.Get(id)
	return ctx.JSON(http.StatusOK, p)
}

type viewportRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// handleViewport records the client's viewport dimensions. Panels cannot
// be placed in 2D mode before the first report.
func (s *Server) handleViewport(ctx echo.Context) error {
	if s.ScreenHost == nil {
		return s.HandleError(ctx, nil, "Viewport only applies to screen display mode", http.StatusConflict)
	}

	var req viewportRequest
	if err := ctx.Bind(&req); err != nil {
		return s.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if req.Width <= 0 || req.Height <= 0 {
		return s.HandleError(ctx, nil, "Viewport dimensions must be positive", http.StatusBadRequest)
	}

	s.ScreenHost.SetViewport(req.Width, req.Height)

	return ctx.JSON(http.StatusOK, map[string]any{
		"width":  req.Width,
		"height": req.Height,
	})
}

func parsePanelID(ctx echo.Context) (int64, error) {
	return strconv.ParseInt(ctx.Param("id"), 10, 64)
}
