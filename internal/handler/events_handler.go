package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/realtime"
	"github.com/classtrack/classtrack-api/pkg/response"
)

type eventSubscriber interface {
	Subscribe(collections ...string) (<-chan realtime.Event, func())
}

// EventsHandler streams collection change notifications as Server-Sent Events.
type EventsHandler struct {
	broker    eventSubscriber
	keepAlive time.Duration
}

// NewEventsHandler constructs an EventsHandler.
func NewEventsHandler(broker eventSubscriber, keepAlive time.Duration) *EventsHandler {
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	return &EventsHandler{broker: broker, keepAlive: keepAlive}
}

// Stream godoc
// @Summary Subscribe to change notifications
// @Description Emits a "change" event {collection, op, at} whenever a subscribed collection changes. Clients re-fetch on each event.
// @Tags Realtime
// @Produce text/event-stream
// @Param collection query []string false "classroom_occupancy, timetable, cr_chat_messages" collectionFormat(multi)
// @Param access_token query string false "Access token for clients that cannot send headers"
// @Success 200
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /events [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	collections := c.QueryArray("collection")
	known := map[string]struct{}{}
	for _, name := range realtime.Collections() {
		known[name] = struct{}{}
	}
	for _, name := range collections {
		if _, ok := known[name]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown collection: "+name))
			return
		}
	}

	events, unsubscribe := h.broker.Subscribe(collections...)
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent("ready", gin.H{"collections": collections})
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case evt, open := <-events:
			if !open {
				return false
			}
			c.SSEvent("change", evt)
			return true
		case at := <-ticker.C:
			c.SSEvent("ping", gin.H{"at": at.UTC()})
			return true
		}
	})
}
