package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/campuscast-api/internal/logger"
	"github.com/gravadigital/campuscast-api/internal/response"
	"github.com/gravadigital/campuscast-api/internal/services"
)

type SessionHandler struct {
	users *services.UserService
	log   *log.Logger
}

func NewSessionHandler(users *services.UserService) *SessionHandler {
	return &SessionHandler{
		users: users,
		log:   logger.Handler("session_handler"),
	}
}

type SignInRequest struct {
	Credential string `json:"credential" binding:"required"`
}

type ProfileRequest struct {
	Name string `json:"name"`
}

// GetSession handles GET /api/session
func (h *SessionHandler) GetSession(c *gin.Context) {
	response.SuccessResponse(c, http.StatusOK, "", h.users.Session())
}

// SignIn handles POST /api/session
func (h *SessionHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.users.SignIn(c.Request.Context(), req.Credential)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Signed in", session)
}

// SignOut handles DELETE /api/session
func (h *SessionHandler) SignOut(c *gin.Context) {
	if err := h.users.SignOut(c.Request.Context()); err != nil {
		writeError(c, h.log, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Signed out", h.users.Session())
}

// UpdateProfile handles PATCH /api/session/profile
func (h *SessionHandler) UpdateProfile(c *gin.Context) {
	var req ProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.users.UpdateName(req.Name)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Profile updated", session)
}
