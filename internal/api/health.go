package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 3 * time.Second

// handleHealth reports healthy iff both the container daemon and the store
// are reachable, per §6.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	dbErr := s.store.Ping(ctx)
	driverErr := s.driver.Ping(ctx)

	if dbErr == nil && driverErr == nil {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		return
	}

	body := gin.H{"status": "unhealthy"}
	if dbErr != nil {
		body["store"] = dbErr.Error()
	}
	if driverErr != nil {
		body["containerDaemon"] = driverErr.Error()
	}
	c.JSON(http.StatusServiceUnavailable, body)
}

// handleReady reports whether the process has finished its startup
// sequence (reconciliation) and is ready to accept lifecycle requests.
func (s *Server) handleReady(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
