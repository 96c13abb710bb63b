package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/logger"
)

// Recovery returns a gin middleware that recovers from panics, logs the
// stack and answers with an INTERNAL_ERROR body.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("Panic recovered", logger.Fields(
					logger.FieldError, fmt.Sprintf("%v", rec),
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					logger.FieldRequestID, c.GetString(RequestIDKey),
				))
				appErr := apperrors.Internal(fmt.Errorf("panic: %v", rec))
				c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			}
		}()
		c.Next()
	}
}
