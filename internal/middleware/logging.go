package middleware

import (
	"time"

	"classteamup/internal/logger"

	"github.com/gin-gonic/gin"
)

// AccessLog writes one structured line per request. The session cookie and
// query string are never logged.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]any{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
			"ip":       c.ClientIP(),
		}
		if uid := UserID(c); uid != "" {
			fields["user_id"] = uid
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("request", fields)
		case status >= 400:
			logger.Warn("request", fields)
		default:
			logger.Info("request", fields)
		}
	}
}
