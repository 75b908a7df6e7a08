package handlers

import (
	"net/http"

	apierrors "tourism-analytics/internal/errors"

	"github.com/labstack/echo/v4"
)

// Handlers report failures through SendError (coded 4xx/409/404) or
// SendSystemError (opaque 500). Never return echo.NewHTTPError or write an
// error body with c.JSON directly.

// TraceIDContextKey is the echo context key set by the request ID middleware.
const TraceIDContextKey = "trace_id"

// SuccessResponse wraps a dashboard payload or other handler result.
type SuccessResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func getTraceID(c echo.Context) string {
	traceID, _ := c.Get(TraceIDContextKey).(string)
	return traceID
}

// SendError writes the coded error envelope with the request's trace ID.
func SendError(c echo.Context, code apierrors.ErrorCode, opts ...apierrors.ErrorOption) error {
	errorResponse := apierrors.NewErrorResponse(code, getTraceID(c), opts...)
	return c.JSON(errorResponse.GetHTTPStatus(), errorResponse)
}

// SendSystemError hides err behind SYSTEM_001. The caller logs err.
func SendSystemError(c echo.Context, err error) error {
	errorResponse, _ := apierrors.WrapSystemError(err, getTraceID(c))
	return c.JSON(http.StatusInternalServerError, errorResponse)
}
