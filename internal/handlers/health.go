package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chirp-social/chirp/internal/monitoring"
	"github.com/chirp-social/chirp/pkg/response"
)

// Health returns a simple status payload useful for liveness checks.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}

// Readiness evaluates the registered dependency probes. A report that is not
// fully up is returned with a 503 so load balancers stop routing traffic.
func Readiness(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := manager.Evaluate(c.Request.Context())

		status := http.StatusOK
		if !report.Success {
			status = http.StatusServiceUnavailable
		}
		// The report carries its own success flag, so it is written as-is
		// rather than wrapped in the standard envelope.
		c.JSON(status, report)
	}
}
