package handlers

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/campuscast-api/internal/logger"
	"github.com/gravadigital/campuscast-api/internal/services"
)

const (
	streamEventName    = "events"
	streamPingName     = "ping"
	streamPingInterval = 25 * time.Second
)

// StreamHandler pushes the event list to clients as server-sent events
type StreamHandler struct {
	events       *services.EventService
	log          *log.Logger
	pingInterval time.Duration
}

func NewStreamHandler(events *services.EventService) *StreamHandler {
	return &StreamHandler{
		events:       events,
		log:          logger.Handler("stream_handler"),
		pingInterval: streamPingInterval,
	}
}

// Stream handles GET /api/events/stream. The current list is sent first, then
// the list after every committed change. Slow clients only get the latest list.
func (h *StreamHandler) Stream(c *gin.Context) {
	initial, err := h.events.ListEvents("all")
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	updates := make(chan []services.EventView, 1)
	unsubscribe := h.events.Subscribe(func(views []services.EventView) {
		for {
			select {
			case updates <- views:
				return
			default:
			}
			// Drop the stale pending list and retry with the new one.
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	requestID := c.GetString("request_id")
	h.log.Info("Stream opened", "request_id", requestID)
	defer h.log.Info("Stream closed", "request_id", requestID)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent(streamEventName, initial)
	c.Writer.Flush()

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case views := <-updates:
			c.SSEvent(streamEventName, views)
			return true
		case t := <-ping.C:
			c.SSEvent(streamPingName, t.UTC().Format(time.RFC3339))
			return true
		}
	})
}
