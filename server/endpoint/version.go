package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mediaflow/version"
)

// Version reports the build identity of the running binary.
func Version() gin.HandlerFunc {
	return func(c *gin.Context) {
		info := version.Get()
		c.JSON(http.StatusOK, gin.H{
			"version":   info.String(),
			"release":   info.Release(),
			"buildTime": info.BuildTime,
			"goVersion": info.GoVersion,
		})
	}
}
