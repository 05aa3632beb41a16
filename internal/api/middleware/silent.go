package middleware

import (
	"errors"
	"log/slog"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// SilentLogger logs requests but ignores the errors caused by clients that
// hang up early, which websocket viewers and dashboards do all the time.
func SilentLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" && !strings.Contains(raw, "token=") {
			path += "?" + raw
		}

		c.Next()

		for _, e := range c.Errors {
			if isClientGone(e.Err) {
				return
			}
		}

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latency", time.Since(start),
			"ip", c.ClientIP(),
		}
		if status >= 500 {
			slog.Error("request", attrs...)
			return
		}
		slog.Info("request", attrs...)
	}
}

func isClientGone(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}
