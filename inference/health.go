package inference

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/hypermodel/component"
)

const (
	healthPath = "/health"
	readyPath  = "/ready"
)

var systemPaths = map[string]bool{
	healthPath: true,
	readyPath:  true,
}

// HealthChecker returns health status for registered models.
type HealthChecker func(ctx context.Context) []component.Health

// Health returns a handler that reports service health including model statuses.
// A model that failed to load makes the service unhealthy; one not yet loaded
// makes it degraded.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := component.StatusHealthy
		components := []component.Health{}

		if checker != nil {
			components = checker(c.Request.Context())
			for _, ch := range components {
				if ch.Status == component.StatusUnhealthy {
					status = component.StatusUnhealthy
					break
				}
				if ch.Status == component.StatusDegraded {
					status = component.StatusDegraded
				}
			}
		}

		httpStatus := http.StatusOK
		if status == component.StatusUnhealthy {
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, gin.H{
			"status":     status,
			"service":    serviceName,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"components": components,
		})
	}
}

// Ready returns a handler answering 200 once ready reports true, 503 before.
func Ready(serviceName string, ready func() bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil && !ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "initialising", "service": serviceName})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "service": serviceName})
	}
}
