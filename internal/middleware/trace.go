package middleware

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"voxbank/internal/common"
)

// TraceID propagates the caller's X-Trace-Id header into the request context,
// generating one when absent, so every audit row of a request shares one key.
func TraceID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		traceID := c.Request().Header.Get("X-Trace-Id")
		if traceID == "" {
			traceID = fmt.Sprintf("TRACE_%s", uuid.NewString())
		}
		c.SetRequest(c.Request().WithContext(common.WithTraceID(c.Request().Context(), traceID)))
		c.Response().Header().Set("X-Trace-Id", traceID)
		return next(c)
	}
}
