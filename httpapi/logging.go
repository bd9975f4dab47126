package httpapi

import (
	"log/slog"
	"time"

	"github.com/MrEthical07/soundwave"
	"github.com/gin-gonic/gin"
)

// AuditContext copies the client IP and User-Agent onto the request context,
// where the Engine picks them up for audit events.
func AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := soundwave.WithClientIP(c.Request.Context(), c.ClientIP())
		if ua := c.Request.UserAgent(); ua != "" {
			ctx = soundwave.WithUserAgent(ctx, ua)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger logs one "http.request" line per request. Errors attached
// with c.Error are included.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("http.request", attrs...)
		case status >= 400:
			log.Info("http.request", attrs...)
		default:
			log.Debug("http.request", attrs...)
		}
	}
}
