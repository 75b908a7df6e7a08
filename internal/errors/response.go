package errors

import (
	"fmt"
	"net/http"
	"sort"
)

// ErrorResponse represents the standardized API error response structure
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the detailed error information. Retryable tells
// dashboard clients that the same request may succeed if re-issued.
type ErrorDetail struct {
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Details   []string `json:"details,omitempty"`
	TraceID   string   `json:"trace_id"`
	Retryable bool     `json:"retryable,omitempty"`
}

// ErrorOption is a functional option for configuring error responses
type ErrorOption func(*ErrorResponse)

// WithDetails replaces the detail messages of the error response
func WithDetails(details ...string) ErrorOption {
	return func(er *ErrorResponse) {
		er.Error.Details = details
	}
}

// WithMessage overrides the default message for the error code
func WithMessage(message string) ErrorOption {
	return func(er *ErrorResponse) {
		er.Error.Message = message
	}
}

// NewErrorResponse creates an error response for code, tagged with traceID
func NewErrorResponse(code ErrorCode, traceID string, opts ...ErrorOption) *ErrorResponse {
	response := &ErrorResponse{
		Error: ErrorDetail{
			Code:      string(code),
			Message:   GetErrorMessage(code),
			TraceID:   traceID,
			Details:   []string{},
			Retryable: IsRetryable(code),
		},
	}

	for _, opt := range opts {
		opt(response)
	}

	return response
}

// NewValidationError builds a VALIDATION_001 response from field errors.
// Details are rendered as "field: message" and sorted so responses are stable.
func NewValidationError(fieldErrors map[string]string, traceID string) *ErrorResponse {
	details := make([]string, 0, len(fieldErrors))
	for field, message := range fieldErrors {
		details = append(details, fmt.Sprintf("%s: %s", field, message))
	}
	sort.Strings(details)

	return NewErrorResponse(ValidationGeneral, traceID, WithDetails(details...))
}

// WrapSystemError hides err behind a generic SYSTEM_001 response. err is
// returned unchanged for server-side logging.
func WrapSystemError(err error, traceID string) (*ErrorResponse, error) {
	return NewErrorResponse(SystemInternalError, traceID), err
}

// GetHTTPStatus returns the appropriate HTTP status code for the error code
func GetHTTPStatus(code ErrorCode) int {
	switch code {
	// 400 Bad Request - Validation errors, malformed requests
	case ValidationGeneral, ValidationRequiredField, ValidationInvalidFormat,
		ValidationOutOfRange, AnalyticsInvalidFilters, AnalyticsMissingViewer:
		return http.StatusBadRequest

	// 401 Unauthorized - Authentication failures
	case AuthMissingToken, AuthExpiredToken, AuthInvalidTokenFormat:
		return http.StatusUnauthorized

	// 403 Forbidden - Authorization failures
	case AuthInsufficientPermission:
		return http.StatusForbidden

	// 404 Not Found
	case AnalyticsUnknownDashboard, AnalyticsTokenUnavailable, SystemNotFound:
		return http.StatusNotFound

	// 409 Conflict - A newer refresh won
	case AnalyticsRefreshSuperseded:
		return http.StatusConflict

	case SystemRateLimitExceeded:
		return http.StatusTooManyRequests

	case SystemServiceUnavailable:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// IsRetryable reports whether re-issuing the request can succeed without
// changing it.
func IsRetryable(code ErrorCode) bool {
	switch code {
	case AnalyticsRefreshSuperseded, SystemRateLimitExceeded, SystemServiceUnavailable:
		return true
	default:
		return false
	}
}

// GetHTTPStatus returns the HTTP status code for the error response
func (er *ErrorResponse) GetHTTPStatus() int {
	return GetHTTPStatus(ErrorCode(er.Error.Code))
}
