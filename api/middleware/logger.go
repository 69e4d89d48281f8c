package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/ytdl-relay/pkg/logger"
)

// Logger returns a gin middleware that writes one access entry per request.
// Responses of 500 and above are also written to the error log.
func Logger(logAdapter *logger.LoggerAdapter) gin.HandlerFunc {
	access := logAdapter.Access()
	errorLog := logAdapter.Error()

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", statusCode),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}

		access.Info("HTTP request", fields...)
		if statusCode >= 500 {
			errorLog.Error("HTTP error response", fields...)
		}
	}
}
