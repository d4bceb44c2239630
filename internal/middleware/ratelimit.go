package middleware

import (
	"net/http"
	"time"

	"gstbill/internal/caching"

	"github.com/labstack/echo/v4"
)

// RateLimitMiddleware throttles requests per client IP using the shared
// redis counter. A redis error lets the request through.
func RateLimitMiddleware(cache caching.CacheService, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limited, err := cache.IsRateLimited(c.Request().Context(), c.RealIP(), limit, window)
			if err != nil {
				return next(c)
			}
			if limited {
				return echo.NewHTTPError(http.StatusTooManyRequests, "Rate limit exceeded")
			}
			return next(c)
		}
	}
}
