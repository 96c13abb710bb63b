package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mediaflow/logger"
)

var probePaths = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/version": true,
}

// RequestLogger logs every request with method, path, status and latency.
// Probe endpoints are skipped.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if probePaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		fields := logger.Fields(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			logger.FieldStatus, status,
			logger.FieldDuration, latency.Milliseconds(),
			"client", c.ClientIP(),
			logger.FieldRequestID, c.GetString(RequestIDKey),
		)
		if len(c.Errors) > 0 {
			fields[logger.FieldError] = c.Errors.String()
		}
		if latency > 500*time.Millisecond {
			fields["slow"] = true
		}
		logByStatus(log, fields, status)
	}
}

func logByStatus(log *logger.Logger, fields map[string]any, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
