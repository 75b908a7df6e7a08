package errors

// ErrorCode represents a standardized error code used throughout the API
type ErrorCode string

// Authentication error codes (AUTH_*)
const (
	AuthMissingToken           ErrorCode = "AUTH_002"
	AuthExpiredToken           ErrorCode = "AUTH_003"
	AuthInvalidTokenFormat     ErrorCode = "AUTH_004"
	AuthInsufficientPermission ErrorCode = "AUTH_005"
)

// Validation error codes (VALIDATION_*)
const (
	ValidationGeneral       ErrorCode = "VALIDATION_001"
	ValidationRequiredField ErrorCode = "VALIDATION_002"
	ValidationInvalidFormat ErrorCode = "VALIDATION_003"
	ValidationOutOfRange    ErrorCode = "VALIDATION_004"
)

// Analytics error codes (ANALYTICS_*)
const (
	AnalyticsUnknownDashboard  ErrorCode = "ANALYTICS_001"
	AnalyticsInvalidFilters    ErrorCode = "ANALYTICS_002"
	AnalyticsMissingViewer     ErrorCode = "ANALYTICS_003"
	AnalyticsRefreshSuperseded ErrorCode = "ANALYTICS_004"
	AnalyticsTokenUnavailable  ErrorCode = "ANALYTICS_005"
)

// System error codes (SYSTEM_*)
const (
	SystemInternalError      ErrorCode = "SYSTEM_001"
	SystemServiceUnavailable ErrorCode = "SYSTEM_003"
	SystemConfigurationError ErrorCode = "SYSTEM_004"
	SystemUnexpectedError    ErrorCode = "SYSTEM_005"
	SystemRateLimitExceeded  ErrorCode = "SYSTEM_006"
	SystemNotFound           ErrorCode = "SYSTEM_007"
)

// errorMessages maps error codes to their default human-readable messages
var errorMessages = map[ErrorCode]string{
	// Authentication errors
	AuthMissingToken:           "Authorization token is required",
	AuthExpiredToken:           "Authorization token has expired",
	AuthInvalidTokenFormat:     "Invalid authorization token format",
	AuthInsufficientPermission: "Insufficient permissions to access this resource",

	// Validation errors
	ValidationGeneral:       "Validation failed",
	ValidationRequiredField: "Required field is missing",
	ValidationInvalidFormat: "Invalid field format",
	ValidationOutOfRange:    "Field value is out of allowed range",

	// Analytics errors
	AnalyticsUnknownDashboard:  "Dashboard not found",
	AnalyticsInvalidFilters:    "Invalid analytics filters",
	AnalyticsMissingViewer:     "A viewer ID is required to refresh a dashboard",
	AnalyticsRefreshSuperseded: "A newer refresh for this dashboard replaced this one",
	AnalyticsTokenUnavailable:  "Viewer tokens cannot be issued by this server",

	// System errors
	SystemInternalError:      "An unexpected error occurred. Please contact support with trace ID",
	SystemServiceUnavailable: "Service temporarily unavailable",
	SystemConfigurationError: "System configuration error",
	SystemUnexpectedError:    "An unexpected error occurred",
	SystemRateLimitExceeded:  "Rate limit exceeded. Please try again later",
	SystemNotFound:           "Resource not found",
}

// GetErrorMessage returns the default message for a given error code
// If the error code is not found, it returns a generic error message
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "An error occurred"
}

// IsValidErrorCode checks if the provided error code is a valid registered code
func IsValidErrorCode(code ErrorCode) bool {
	_, ok := errorMessages[code]
	return ok
}
