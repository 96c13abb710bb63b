package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodySizeLimit caps request bodies at limit bytes. Reads beyond the limit
// fail, which surfaces as a binding error in the handler.
func BodySizeLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.AbortWithStatus(http.StatusRequestEntityTooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
