package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/campuscast-api/internal/logger"
	"github.com/gravadigital/campuscast-api/internal/response"
	"github.com/gravadigital/campuscast-api/internal/services"
)

type VoteHandler struct {
	events *services.EventService
	log    *log.Logger
}

func NewVoteHandler(events *services.EventService) *VoteHandler {
	return &VoteHandler{
		events: events,
		log:    logger.Handler("vote_handler"),
	}
}

type SubmitVoteRequest struct {
	OptionID string `json:"option_id" binding:"required"`
}

// SubmitVote handles POST /api/events/:id/votes
func (h *VoteHandler) SubmitVote(c *gin.Context) {
	var req SubmitVoteRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.events.Vote(c.Request.Context(), c.Param("id"), req.OptionID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	response.SuccessResponse(c, http.StatusCreated, "Vote recorded", view)
}

// GetEventResults handles GET /api/events/:id/results
func (h *VoteHandler) GetEventResults(c *gin.Context) {
	results, err := h.events.Results(c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", results)
}
