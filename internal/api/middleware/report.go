package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/bassista/go_persist/internal/logger"
	"github.com/bassista/go_persist/internal/report"
	"github.com/gin-gonic/gin"
)

// Report forwards panics and 4xx/5xx responses (except 404) to the reporter.
// Panics are re-raised for gin.Recovery to answer.
func Report(r *report.Reporter) gin.HandlerFunc {
	if !r.Enabled() {
		return func(c *gin.Context) { c.Next() }
	}
	log := logger.WithComponent("http")

	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				r.NotifyPanic(fmt.Sprintf("Panic: %s %s", c.Request.Method, c.Request.URL.Path), c.Request, debug.Stack())
				log.Error("Recovered from panic, notified Honeybadger: ", rec)
				panic(rec)
			}
		}()

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest || status == http.StatusNotFound {
			return
		}
		if status >= http.StatusInternalServerError {
			r.NotifyRequest(fmt.Sprintf("Error: HTTP %d: %s %s", status, c.Request.Method, c.Request.URL.Path), c.Request, "5XX", "http")
		} else {
			r.NotifyRequest(fmt.Sprintf("Warning: HTTP %d: %s %s", status, c.Request.Method, c.Request.URL.Path), c.Request, "4XX", "http")
		}
		log.Warnf("Honeybadger reported HTTP %d for %s %s", status, c.Request.Method, c.Request.URL.Path)
	}
}
