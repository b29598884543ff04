// handlers_events.go - Server-Sent Events stream of demo snapshots
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pdf2json/landing/internal/logger"
	"github.com/pdf2json/landing/internal/models"
)

// EventStreamTimeout bounds how long a single SSE stream stays open.
var EventStreamTimeout = 5 * time.Minute

// HandleSessionEvents streams session snapshots until the session reaches
// review, the client goes away or the stream times out.
func (h *DemoHandlerImpl) HandleSessionEvents(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	updates, cancel, err := h.sessions.Subscribe(id)
	if err != nil {
		return sessionError(err, id)
	}
	defer cancel()

	// The server WriteTimeout would cut long parses short; EventStreamTimeout
	// bounds the stream instead. Recorders in tests do not support deadlines.
	if err := http.NewResponseController(c.Response().Writer).SetWriteDeadline(time.Time{}); err != nil {
		logger.Debug("event stream keeps server write deadline", "session", id, "error", err)
	}

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	timeout := time.NewTimer(EventStreamTimeout)
	defer timeout.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				sendSSEError(c, "session closed")
				return nil
			}
			h.sessions.Touch(id)
			sendSSEData(c, snap)
			if snap.State == models.DemoStateReview {
				return nil
			}

		case <-ctx.Done():
			return nil

		case <-timeout.C:
			sendSSEError(c, "stream timeout")
			return nil
		}
	}
}

func sendSSEData(c echo.Context, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData)
	c.Response().Flush()
}

func sendSSEError(c echo.Context, message string) {
	sendSSEData(c, map[string]string{"error": message})
}
