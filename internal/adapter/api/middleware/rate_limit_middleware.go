package middleware

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"courtside/internal/infrastructure/ratelimit"
	"courtside/pkg/errors"
	"courtside/pkg/logger"
	"courtside/pkg/response"
)

// RateLimit throttles requests per authenticated user, or per client IP
// before authentication.
func RateLimit(limiter *ratelimit.RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, _ := c.Get(ContextUserID).(string)
			if key == "" {
				key = "ip:" + c.RealIP()
			}

			allowed, retryAfter := limiter.Allow(key, ratelimit.ActionRequest)
			if !allowed {
				logger.Warn("RATE LIMIT: blocked request from %s (retry in %v)", key, retryAfter)
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded", retryAfter))
			}
			return next(c)
		}
	}
}
