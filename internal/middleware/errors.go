package middleware

import (
	"github.com/aman-churiwal/gatekeeper/internal/apperror"
	"github.com/gin-gonic/gin"
)

// ErrorHandler turns the last error a handler recorded into the JSON error
// envelope. The error is logged before the response is built.
func ErrorHandler(logger *apperror.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		logger.Log(c.Request.Context(), err, apperror.LogContext{
			RequestID: c.GetString("request_id"),
			Method:    c.Request.Method,
			Route:     route,
			ClientIP:  c.ClientIP(),
		})

		if c.Writer.Written() {
			return
		}

		status, body := apperror.ToResponse(err)
		c.JSON(status, body)
	}
}
