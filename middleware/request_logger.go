package middleware

import (
	"fmt"
	"time"

	"skystore/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger writes per-request logs at debug level. It wraps the auth
// middleware, so the acting principal is only known once the handler chain
// has finished.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !logger.IsDebugEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		path := c.Request.URL.Path
		rawQuery := c.Request.URL.RawQuery

		c.Next()

		if rawQuery != "" {
			path = path + "?" + rawQuery
		}

		actor := "anonymous"
		if principal := GetPrincipal(c); principal.ID != 0 {
			actor = fmt.Sprintf("user:%d", principal.ID)
		}

		logger.Debugf(
			"%s | %d | %s | %s | %s | %s",
			c.Request.Method,
			c.Writer.Status(),
			time.Since(start),
			c.ClientIP(),
			actor,
			path,
		)
	}
}
