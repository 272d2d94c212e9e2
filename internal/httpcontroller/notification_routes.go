package httpcontroller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nutriscan/arnutri-go/internal/notification"
)

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 30 * time.Second

// handleListNotifications returns stored notifications, newest first.
// Supported query parameters: limit, type, status.
func (s *Server) handleListNotifications(ctx echo.Context) error {
	filter := &notification.FilterOptions{}

	if limitStr := ctx.QueryParam("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return s.HandleError(ctx, err, "Invalid limit parameter", http.StatusBadRequest)
		}
		filter.Limit = limit
	}
	if typeStr := ctx.QueryParam("type"); typeStr != "" {
		filter.Types = []notification.Type{notification.Type(typeStr)}
	}
	if statusStr := ctx.QueryParam("status"); statusStr != "" {
		filter.Status = []notification.Status{notification.Status(statusStr)}
	}

	notifications, err := s.Notifications.List(filter)
	if err != nil {
		return s.HandleError(ctx, err, "Failed to list notifications", http.StatusInternalServerError)
	}

	unread, err := s.Notifications.GetUnreadCount()
	if err != nil {
		return s.HandleError(ctx, err, "Failed to count unread notifications", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"notifications": notifications,
		"unread_count":  unread,
	})
}

// handleEvents streams notifications to the client as server-sent events.
// The stream stays open until the client disconnects or the notification
// service shuts down.
func (s *Server) handleEvents(ctx echo.Context) error {
	setSSEHeaders(ctx)

	ch, subCtx := s.Notifications.Subscribe()
	defer s.Notifications.Unsubscribe(ch)

	if err := sendSSEMessage(ctx, "connected", map[string]string{
		"message": "Connected to notification stream",
	}); err != nil {
		return err
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	reqCtx := ctx.Request().Context()
	for {
		select {
		case <-reqCtx.Done():
			return nil

		case <-subCtx.Done():
			return nil

		case notif := <-ch:
			if notif == nil {
				return nil
			}
			if err := sendSSEMessage(ctx, "notification", notif); err != nil {
				webLogger.Debug("SSE send failed, closing stream", "error", err)
				return nil
			}

		case <-ticker.C:
			if err := sendSSEMessage(ctx, "heartbeat", map[string]string{
				"timestamp": time.Now().Format(time.RFC3339),
			}); err != nil {
				return nil
			}
		}
	}
}

func setSSEHeaders(ctx echo.Context) {
	h := ctx.Response().Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
}

func sendSSEMessage(ctx echo.Context, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(ctx.Response(), "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	ctx.Response().Flush()
	return nil
}
