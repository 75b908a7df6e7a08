package middleware

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"tourism-analytics/internal/errors"
	"tourism-analytics/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var apiErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "api_errors_total",
		Help: "Total number of API errors by code, route and status",
	},
	[]string{"code", "endpoint", "status"},
)

// CustomHTTPErrorHandler renders any error that escapes a handler as the
// coded error envelope. Internal errors are logged and never echoed back.
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	traceID := traceIDOrUnknown(c)
	errorResponse, httpStatus := classifyError(err, traceID)

	logLevel := slog.LevelWarn
	if httpStatus >= http.StatusInternalServerError {
		logLevel = slog.LevelError
	}
	slog.Log(c.Request().Context(), logLevel, "request failed",
		"trace_id", traceID,
		"error_code", errorResponse.Error.Code,
		"status", httpStatus,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"error", err.Error(),
	)

	writeErrorResponse(c, httpStatus, errorResponse)
}

func classifyError(err error, traceID string) (*errors.ErrorResponse, int) {
	var (
		echoErr        *echo.HTTPError
		validationErrs validator.ValidationErrors
	)

	switch {
	case stderrors.As(err, &echoErr):
		return errors.NewErrorResponse(
			mapHTTPStatusToErrorCode(echoErr.Code),
			traceID,
			errors.WithMessage(fmt.Sprint(echoErr.Message)),
		), echoErr.Code
	case stderrors.As(err, &validationErrs):
		fieldErrors := make(map[string]string, len(validationErrs))
		for _, fieldErr := range validationErrs {
			fieldErrors[fieldErr.Field()] = validation.DescribeFieldError(fieldErr)
		}
		return errors.NewValidationError(fieldErrors, traceID), http.StatusBadRequest
	default:
		errorResponse, _ := errors.WrapSystemError(err, traceID)
		return errorResponse, errorResponse.GetHTTPStatus()
	}
}

// writeErrorResponse counts the error and sends it unless a body was
// already written.
func writeErrorResponse(c echo.Context, status int, errorResponse *errors.ErrorResponse) {
	apiErrorsTotal.WithLabelValues(errorResponse.Error.Code, c.Path(), strconv.Itoa(status)).Inc()

	if c.Response().Committed {
		return
	}
	if err := c.JSON(status, errorResponse); err != nil {
		slog.Error("failed to write error response",
			"trace_id", errorResponse.Error.TraceID,
			"error", err.Error(),
		)
	}
}

func traceIDOrUnknown(c echo.Context) string {
	if traceID := GetTraceID(c); traceID != "" {
		return traceID
	}
	return "unknown"
}

func mapHTTPStatusToErrorCode(status int) errors.ErrorCode {
	switch status {
	case http.StatusBadRequest, http.StatusMethodNotAllowed, http.StatusUnprocessableEntity:
		return errors.ValidationGeneral
	case http.StatusUnauthorized:
		return errors.AuthMissingToken
	case http.StatusForbidden:
		return errors.AuthInsufficientPermission
	case http.StatusNotFound:
		return errors.SystemNotFound
	case http.StatusTooManyRequests:
		return errors.SystemRateLimitExceeded
	case http.StatusInternalServerError:
		return errors.SystemInternalError
	case http.StatusServiceUnavailable:
		return errors.SystemServiceUnavailable
	default:
		return errors.SystemUnexpectedError
	}
}
