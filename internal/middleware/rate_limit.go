package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"voxbank/internal/common"
	"voxbank/internal/ratelimit"
)

// RateLimit enforces a per-user fixed window for one action class. It must
// run after AgentAuth so the user id is resolved; unauthenticated requests
// pass through to be rejected by the auth layer.
func RateLimit(limiter ratelimit.RateLimiter, class ratelimit.Class) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := common.GetUserIDFromContext(c.Request().Context())
			if !ok {
				return next(c)
			}
			result, err := limiter.Check(c.Request().Context(), userID, class)
			if err != nil {
				// Fail open: a broken limiter backend must not take down
				// payments, the fraud heuristics still apply.
				c.Logger().Errorf("rate limiter check failed: %v", err)
				return next(c)
			}
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			if !result.Allowed {
				retryAfter := int(time.Until(result.ResetAt).Seconds()) + 1
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return c.JSON(http.StatusTooManyRequests, common.CreateErrorResponse(
					"RATE_LIMITED", "Too many requests. Please slow down.", nil))
			}
			return next(c)
		}
	}
}
