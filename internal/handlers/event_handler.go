package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/campuscast-api/internal/logger"
	"github.com/gravadigital/campuscast-api/internal/response"
	"github.com/gravadigital/campuscast-api/internal/services"
)

type EventHandler struct {
	events *services.EventService
	log    *log.Logger
}

func NewEventHandler(events *services.EventService) *EventHandler {
	return &EventHandler{
		events: events,
		log:    logger.Handler("event_handler"),
	}
}

// EventRequest is the body of POST /api/events and PUT /api/events/:id
type EventRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Options     []string `json:"options"`
}

func (r EventRequest) form() services.EventForm {
	return services.EventForm{Title: r.Title, Description: r.Description, Options: r.Options}
}

// GetAllEvents handles GET /api/events?filter=all|mine
func (h *EventHandler) GetAllEvents(c *gin.Context) {
	views, err := h.events.ListEvents(c.DefaultQuery("filter", "all"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", views)
}

// GetEvent handles GET /api/events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	view, err := h.events.GetEvent(c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", view)
}

// CreateEvent handles POST /api/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req EventRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.events.CreateEvent(c.Request.Context(), req.form())
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	h.log.Info("Event created", "event_id", view.ID, "request_id", c.GetString("request_id"))
	response.SuccessResponse(c, http.StatusCreated, "Event created", view)
}

// UpdateEvent handles PUT /api/events/:id
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	var req EventRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.events.UpdateEvent(c.Request.Context(), c.Param("id"), req.form())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Event updated", view)
}

// DeleteEvent handles DELETE /api/events/:id
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	if err := h.events.DeleteEvent(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.log, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Event deleted", nil)
}
