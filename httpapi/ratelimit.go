package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/MrEthical07/soundwave/internal/rate"
	"github.com/MrEthical07/soundwave/middleware"
	"github.com/gin-gonic/gin"
)

// CodeRateLimited is returned with 429 when a client exhausts its budget.
const CodeRateLimited = "RATE_LIMITED"

// RateLimit throttles requests per client IP. Limiter backend failures let
// the request through and are logged.
func RateLimit(l *rate.Limiter, log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(c *gin.Context) {
		if !l.Enabled() {
			c.Next()
			return
		}

		key := c.ClientIP()
		err := l.Allow(c.Request.Context(), key)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, rate.ErrRateLimited):
			if after, err := l.RetryAfter(c.Request.Context(), key); err == nil && after > 0 {
				c.Header("Retry-After", strconv.Itoa(int(after.Seconds())+1))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, middleware.ErrorBody{
				Error:   CodeRateLimited,
				Message: "too many requests",
			})
		default:
			log.Warn("http.ratelimit.unavailable", "path", c.Request.URL.Path, "err", err)
			c.Next()
		}
	}
}
