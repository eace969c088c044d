package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventplanner-backend/pkg/logger"
	"eventplanner-backend/pkg/response"
)

// Recovery recovers from handler panics, logs them and returns a generic 500
// without leaking the stack to the client
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Handler panic",
					zap.Any("panic", err),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"))
				response.InternalError(c, "Unexpected error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
