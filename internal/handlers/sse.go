// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/millwardesque/parkbench/internal/events"
	"github.com/millwardesque/parkbench/internal/sse"
)

// sseBufferSize bounds how many roster updates a slow client can fall
// behind before updates are dropped. The client always converges via the
// next update or a page reload.
const sseBufferSize = 8

// SSEHandler streams roster changes to connected clients over Server-Sent
// Events.
type SSEHandler struct {
	broadcaster *events.Broadcaster
}

// NewSSEHandler creates a new SSE handler.
func NewSSEHandler(broadcaster *events.Broadcaster) *SSEHandler {
	return &SSEHandler{broadcaster: broadcaster}
}

// Events handles the SSE connection endpoint.
func (h *SSEHandler) Events(c echo.Context) error {
	w := c.Response()
	ctx := c.Request().Context()

	flusher, ok := w.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "SSE not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	// Subscribers must not block the publisher, so the callback hands the
	// payload to a buffered channel and drops when the client lags.
	ch := make(chan any, sseBufferSize)
	unsubscribe := h.broadcaster.Subscribe(events.RosterChanged, func(payload any) {
		select {
		case ch <- payload:
		default:
		}
	})
	defer unsubscribe()

	// Send initial connection event
	w.Write([]byte(sse.FormatEvent("connected", "ok")))
	flusher.Flush()

	// Heartbeat ticker to keep connection alive through proxies
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	// Stream events until client disconnects
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Write([]byte(sse.Heartbeat)); err != nil {
				return nil // Client disconnected
			}
			flusher.Flush()
		case payload := <-ch:
			data, err := json.Marshal(payload)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte(sse.FormatEvent(string(events.RosterChanged), string(data)))); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}
