package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"tourism-analytics/internal/errors"

	"github.com/labstack/echo/v4"
)

// PanicRecovery turns a handler panic into a SYSTEM_001 response. The panic
// value and stack go to the log only.
func PanicRecovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}

				traceID := traceIDOrUnknown(c)
				slog.Error("panic recovered",
					"trace_id", traceID,
					"panic", recovered,
					"stack_trace", string(debug.Stack()),
					"path", c.Request().URL.Path,
					"method", c.Request().Method,
				)

				writeErrorResponse(c, http.StatusInternalServerError,
					errors.NewErrorResponse(errors.SystemInternalError, traceID))
			}()

			return next(c)
		}
	}
}
