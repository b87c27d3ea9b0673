package handlers

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/campuscast-api/internal/domain/identity"
	"github.com/gravadigital/campuscast-api/internal/response"
	"github.com/gravadigital/campuscast-api/internal/services"
	"github.com/gravadigital/campuscast-api/internal/validation"
)

// writeError maps a service error onto the matching HTTP status
func writeError(c *gin.Context, log *log.Logger, err error) {
	var (
		fields    validation.FieldErrors
		domainErr *identity.DomainError
	)

	switch {
	case errors.As(err, &fields):
		response.ValidationError(c, "Invalid form", fields)
	case errors.As(err, &domainErr):
		response.ForbiddenError(c, domainErr.UserMessage())
	case errors.Is(err, identity.ErrLoginFailed):
		response.UnauthorizedError(c, "Login failed")
	case errors.Is(err, services.ErrUnauthenticated):
		response.UnauthorizedError(c, err.Error())
	case errors.Is(err, services.ErrNotOwner), errors.Is(err, services.ErrOwnEvent):
		response.ForbiddenError(c, err.Error())
	case errors.Is(err, services.ErrEventNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, services.ErrAlreadyVoted):
		response.ConflictError(c, err.Error())
	case errors.Is(err, services.ErrOptionNotFound), errors.Is(err, services.ErrInvalidFilter):
		response.BadRequestError(c, err.Error())
	default:
		log.Error("Request failed", "error", err, "request_id", c.GetString("request_id"))
		response.InternalServerError(c, "Internal server error")
	}
}

// bindJSON decodes the request body or answers 400
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.BadRequestError(c, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}
