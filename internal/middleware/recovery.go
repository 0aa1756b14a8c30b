package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery converts a panic into an error for ErrorHandler, which logs it with
// the stack and answers with a generic 500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				abortWithError(c, fmt.Errorf("panic: %v\n%s", rec, debug.Stack()))
			}
		}()
		c.Next()
	}
}
