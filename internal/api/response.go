// Package api wires the orchestrator's HTTP surface: the gin router,
// request-ID/logging middleware, response envelopes, and the handlers for
// plugin, marketplace, source, health, and event-stream operations (§6).
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowforge/plugin-orchestrator/internal/api/middleware"
	"github.com/flowforge/plugin-orchestrator/internal/apperrors"
)

// envelope is the §6 response shape, shared by every success and error response.
type envelope struct {
	Success   bool                   `json:"success"`
	Data      interface{}            `json:"data,omitempty"`
	Error     *apperrors.ErrorDetail `json:"error,omitempty"`
	RequestID string                 `json:"requestId"`
	Timestamp time.Time              `json:"timestamp"`
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{
		Success:   true,
		Data:      data,
		RequestID: middleware.GetRequestID(c),
		Timestamp: time.Now(),
	})
}

// fail writes the error envelope for err, translating it to an AppError if
// it is not one already so every failure path always has a status code.
func fail(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	detail := appErr.ToResponse()
	c.JSON(appErr.StatusCode, envelope{
		Success:   false,
		Error:     &detail,
		RequestID: middleware.GetRequestID(c),
		Timestamp: time.Now(),
	})
}

func badRequest(c *gin.Context, message string) {
	fail(c, apperrors.ValidationError(message))
}
