package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowforge/plugin-orchestrator/internal/logger"
)

var log = logger.Component("api")

// StructuredLogger logs one structured line per request: request id, method,
// path, status, duration, and client ip, at a level keyed off status code.
// The /health and /ready endpoints are skipped to keep polling out of the log.
func StructuredLogger() gin.HandlerFunc {
	skip := map[string]bool{"/health": true, "/ready": true}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		evt := log.Info()
		switch {
		case status >= 500:
			evt = log.Error()
		case status >= 400:
			evt = log.Warn()
		}

		evt = evt.
			Str("requestId", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", duration).
			Str("clientIp", c.ClientIP())
		if query != "" {
			evt = evt.Str("query", query)
		}
		if len(c.Errors) > 0 {
			evt = evt.Str("errors", c.Errors.String())
		}
		evt.Msg("request")
	}
}
