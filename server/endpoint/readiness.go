package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mediaflow/component"
)

// Readiness reports whether the service can take traffic. Degraded
// components still count as ready; any unhealthy one does not.
func Readiness(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ready"
		httpStatus := http.StatusOK
		var failing []string

		if checker != nil {
			for _, ch := range checker(c.Request.Context()) {
				if ch.Status == component.StatusUnhealthy {
					failing = append(failing, ch.Name)
				}
			}
		}
		if len(failing) > 0 {
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, gin.H{
			"status":    status,
			"service":   serviceName,
			"failing":   failing,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
