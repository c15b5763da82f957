package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
	"github.com/noah-isme/placement-engine/pkg/response"
)

// Deadline bounds every request with a context deadline. A handler that
// returns after the deadline without writing a response gets a timeout.
func Deadline(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if !c.Writer.Written() && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			response.Error(c, appErrors.ErrTimeout)
			c.Abort()
		}
	}
}
