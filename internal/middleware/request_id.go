package middleware

import (
	"context"

	"tourism-analytics/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	// TraceIDHeader is the header name for the trace ID
	TraceIDHeader = "X-Trace-ID"
	// TraceIDContextKey is the echo context key for storing the trace ID
	TraceIDContextKey = "trace_id"
)

// RequestID assigns each request a trace ID, reusing an inbound X-Trace-ID.
// The ID is stored on the echo context, the request context and the response,
// so audit events logged by services carry it too.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			traceID := req.Header.Get(TraceIDHeader)
			if _, err := uuid.Parse(traceID); err != nil {
				traceID = uuid.New().String()
			}

			c.Set(TraceIDContextKey, traceID)
			c.SetRequest(req.WithContext(services.ContextWithTraceID(req.Context(), traceID)))
			c.Response().Header().Set(TraceIDHeader, traceID)
			return next(c)
		}
	}
}

// GetTraceID returns the trace ID assigned by RequestID, or "" before it ran.
func GetTraceID(c echo.Context) string {
	traceID, _ := c.Get(TraceIDContextKey).(string)
	return traceID
}

// TraceIDFromContext returns the trace ID carried by a request context
func TraceIDFromContext(ctx context.Context) string {
	return services.TraceIDFromContext(ctx)
}
