package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/mediaflow/logger"
)

const (
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-Id"
	// RequestIDKey is the gin context key holding the request id.
	RequestIDKey = "request_id"
)

// RequestID propagates the caller's X-Request-Id or mints one, and stores it
// on the request context so scoped loggers pick it up.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}
