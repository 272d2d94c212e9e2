package httpcontroller

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// initRoutes registers all API endpoints under /api/v1.
func (s *Server) initRoutes() {
	g := s.Echo.Group("/api/v1")

	g.GET("/health", s.handleHealth)

	// Resolution pipeline
	g.POST("/scan", s.handleScan)
	g.POST("/search", s.handleSearch)

	// Panels
	g.GET("/panels", s.handleListPanels)
	g.DELETE("/panels", s.handleClearPanels)
	g.DELETE("/panels/:id", s.handleRemovePanel)
	g.POST("/panels/:id/front", s.handleBringToFront)
	g.POST("/panels/:id/position", s.handleReposition)

	// Session state
	g.POST("/viewport", s.handleViewport)
	g.POST("/orientation", s.handleOrientation)
	g.POST("/compare", s.handleEnterCompare)
	g.DELETE("/compare", s.handleExitCompare)

	// Vision mode
	g.POST("/vision", s.handleVisionMode)
	g.POST("/vision/recognize", s.handleRecognize)

	// Notifications
	g.GET("/notifications", s.handleListNotifications)
	g.GET("/events", s.handleEvents)
}

// handleHealth reports process liveness and uptime.
func (s *Server) handleHealth(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
