package httpcontroller

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nutriscan/arnutri-go/internal/panel"
	"github.com/nutriscan/arnutri-go/internal/vision"
)

type scanRequest struct {
	Code string `json:"code"`
}

type searchRequest struct {
	Term string `json:"term"`
}

type scanResponse struct {
	Panel *panel.Panel `json:"panel"`
	State string       `json:"state"`
}

// handleScan feeds one decoded barcode into the detection pipeline. A
// found product appears in the response as its placed panel; an unknown
// barcode or a failed lookup yields a null panel.
func (s *Server) handleScan(ctx echo.Context) error {
	var req scanRequest
	if err := ctx.Bind(&req); err != nil {
		return s.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if req.Code == "" {
		return s.HandleError(ctx, nil, "Barcode code is required", http.StatusBadRequest)
	}

	placed, err := s.Scanner.HandleDetection(ctx.Request().Context(), req.Code)
	if err != nil {
		return s.HandleError(ctx, err, "Detection was not accepted", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, scanResponse{
		Panel: placed,
		State: string(s.Scanner.State()),
	})
}

// handleSearch resolves a free-text food name. Text searches never gate
// the barcode decoder.
func (s *Server) handleSearch(ctx echo.Context) error {
	var req searchRequest
	if err := ctx.Bind(&req); err != nil {
		return s.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	placed, err := s.Scanner.Search(ctx.Request().Context(), req.Term)
	if err != nil {
		return s.HandleError(ctx, err, "Search failed", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, scanResponse{
		Panel: placed,
		State: string(s.Scanner.State()),
	})
}

type visionModeRequest struct {
	Enabled bool `json:"enabled"`
}

// handleVisionMode toggles visual recognition mode. Enabling it pauses
// barcode detection until the mode is turned off again.
func (s *Server) handleVisionMode(ctx echo.Context) error {
	var req visionModeRequest
	if err := ctx.Bind(&req); err != nil {
		return s.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	s.Scanner.SetVisionMode(req.Enabled)

	return ctx.JSON(http.StatusOK, map[string]any{
		"enabled": s.Scanner.VisionMode(),
		"state":   string(s.Scanner.State()),
	})
}

type recognizeRequest struct {
	Predictions []vision.Prediction `json:"predictions"`
	Manual      bool                `json:"manual"`
}

// handleRecognize consumes classifier predictions computed on the client.
// Manual captures surface the top food prediction and search for it;
// background frames only warm the latest prediction set.
func (s *Server) handleRecognize(ctx echo.Context) error {
	if s.Vision == nil {
		return s.HandleError(ctx, nil, "Visual recognition is not enabled", http.StatusConflict)
	}

	var req recognizeRequest
	if err := ctx.Bind(&req); err != nil {
		return s.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	placed, err := s.Vision.HandlePredictions(ctx.Request().Context(), req.Predictions, req.Manual)
	if err != nil {
		return s.HandleError(ctx, err, "Recognition failed", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, scanResponse{
		Panel: placed,
		State: string(s.Scanner.State()),
	})
}
