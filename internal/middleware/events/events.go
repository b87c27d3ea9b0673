// Package events provides middleware for request logging and identity checks
package events

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gravadigital/campuscast-api/internal/domain/identity"
	"github.com/gravadigital/campuscast-api/internal/logger"
	"github.com/gravadigital/campuscast-api/internal/response"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
	IdentityKey     = "identity"
)

// CreateEvent returns a middleware function that logs request details
func CreateEvent() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		log := logger.HTTP()

		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = generateRequestID()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		log.Debug("Request started",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"remote_addr", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		)

		c.Next()

		latency := time.Since(startTime)
		status := c.Writer.Status()

		logLevel := log.Info
		if status >= 500 {
			logLevel = log.Error
		} else if status >= 400 {
			logLevel = log.Warn
		}

		fields := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", latency,
			"size", c.Writer.Size(),
		}
		if id := IdentityFrom(c); id != nil {
			fields = append(fields, "email", id.Email)
		}
		logLevel("Request completed", fields...)
	}
}

// generateRequestID creates a request ID for tracing
func generateRequestID() string {
	return uuid.NewString()
}

// IdentitySource reports the signed-in identity and whether its domain is allowed
type IdentitySource interface {
	CurrentIdentity() *identity.Identity
	IsAllowedDomain() bool
}

// RequireIdentity aborts with 401 unless an allowed identity is signed in. The
// identity is stored in the context under IdentityKey.
func RequireIdentity(source IdentitySource) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := source.CurrentIdentity()
		if id == nil {
			response.UnauthorizedError(c, "Sign in required")
			return
		}
		if !source.IsAllowedDomain() {
			response.UnauthorizedError(c, "Not an official account")
			return
		}

		c.Set(IdentityKey, id)
		c.Next()
	}
}

// IdentityFrom returns the identity set by RequireIdentity
func IdentityFrom(c *gin.Context) *identity.Identity {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*identity.Identity)
	return id
}
