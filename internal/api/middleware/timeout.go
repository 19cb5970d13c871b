package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bassista/go_persist/internal/logger"
	"github.com/bassista/go_persist/internal/report"
	"github.com/gin-gonic/gin"
)

// RequestTimeout gives each request a context deadline of d. Handlers must
// honor ctx.Done(); nothing is killed. A handler that gives up without
// writing gets a 504, which is reported to r. d <= 0 disables the deadline.
func RequestTimeout(d time.Duration, r *report.Reporter) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	log := logger.WithComponent("http")

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if !errors.Is(ctx.Err(), context.DeadlineExceeded) || c.Writer.Written() {
			return
		}
		msg := fmt.Sprintf("request timed out after %v: %s %s", d, c.Request.Method, c.Request.URL.Path)
		log.Warn(msg)
		r.NotifyRequest(msg, c.Request, "timeout", "http")
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{
			"error": "request timeout",
		})
	}
}
