package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/ytdl-relay/internal/domain"
	"github.com/yourusername/ytdl-relay/pkg/logger"
)

// Recovery returns a gin middleware for panic recovery. The JSON error is
// only sent when the response has not started.
func Recovery(logAdapter *logger.LoggerAdapter) gin.HandlerFunc {
	errorLog := logAdapter.Error()

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				errorLog.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.String("client_ip", c.ClientIP()),
					zap.Stack("stack"),
				)
				if c.Writer.Written() {
					c.Abort()
					return
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   domain.KindInternal,
					"message": "internal server error",
				})
			}
		}()
		c.Next()
	}
}
