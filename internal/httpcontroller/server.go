// Package httpcontroller exposes the scanner core over an echo HTTP API:
// barcode and text resolution, panel lifecycle, orientation samples,
// comparison mode, and a server-sent notification stream.
package httpcontroller

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/nutriscan/arnutri-go/internal/compare"
	"github.com/nutriscan/arnutri-go/internal/conf"
	"github.com/nutriscan/arnutri-go/internal/logging"
	"github.com/nutriscan/arnutri-go/internal/notification"
	"github.com/nutriscan/arnutri-go/internal/orientation"
	"github.com/nutriscan/arnutri-go/internal/panel"
	"github.com/nutriscan/arnutri-go/internal/scanner"
	"github.com/nutriscan/arnutri-go/internal/vision"
)

// Package-level logger specific to web server operations
var (
	webLogger       *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "web.log")
	initialLevel := slog.LevelInfo
	serviceLevelVar.Set(initialLevel)

	webLogger, closeLogger, err = logging.NewFileLogger(logFilePath, "web", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize web file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		webLogger = slog.New(fbHandler).With("service", "web")
		closeLogger = func() error { return nil }
	}
}

// Server encapsulates the echo server and the scanner core it fronts.
type Server struct {
	Echo     *echo.Echo
	Settings *conf.Settings

	Scanner       *scanner.Scanner
	Registry      *panel.Registry
	ScreenHost    *panel.ScreenHost
	Tracker       *orientation.Tracker
	Compare       *compare.Engine
	Vision        *vision.Coordinator
	Notifications *notification.Service
}

// New initializes the HTTP server over the given collaborators. ScreenHost
// and Vision may be nil depending on the configured display and vision
// modes.
func New(settings *conf.Settings, sc *scanner.Scanner, registry *panel.Registry, host *panel.ScreenHost,
	tracker *orientation.Tracker, engine *compare.Engine, coordinator *vision.Coordinator,
	notifications *notification.Service) *Server {

	s := &Server{
		Echo:          echo.New(),
		Settings:      settings,
		Scanner:       sc,
		Registry:      registry,
		ScreenHost:    host,
		Tracker:       tracker,
		Compare:       engine,
		Vision:        coordinator,
		Notifications: notifications,
	}

	s.Echo.HideBanner = true
	s.Echo.IPExtractor = echo.ExtractIPFromXFFHeader()

	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.CORS())
	s.Echo.Use(middleware.BodyLimit("1M"))
	s.Echo.Use(s.LoggingMiddleware())

	s.initRoutes()
	return s
}

// Start begins listening and serving HTTP requests.
func (s *Server) Start() {
	errChan := make(chan error)

	go func() {
		if err := s.Echo.Start(":" + s.Settings.WebServer.Port); err != nil {
			errChan <- err
		}
	}()

	go handleServerError(errChan)

	webLogger.Info("HTTP server started", "port", s.Settings.WebServer.Port)
}

func handleServerError(errChan chan error) {
	for err := range errChan {
		if errors.Is(err, http.ErrServerClosed) {
			return
		}
		webLogger.Error("HTTP server error", "error", err)
	}
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	webLogger.Info("HTTP server shutting down")
	return s.Echo.Shutdown(ctx)
}

// LoggingMiddleware logs API requests with structured data when request
// logging is enabled.
func (s *Server) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)

			if !s.Settings.WebServer.Debug {
				return err
			}

			req := ctx.Request()
			res := ctx.Response()

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.String("ip", ctx.RealIP()),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}

			webLogger.LogAttrs(req.Context(), slog.LevelInfo, "API Request", attrs...)

			return err
		}
	}
}
