package services

import (
	"errors"
	"fmt"
	"strings"

	"tourism-analytics/internal/models"
)

var (
	ErrUnauthenticated  = errors.New("no authenticated user for analytics request")
	ErrUnknownDashboard = errors.New("unknown dashboard")
)

// AuthorizationError means the caller's role may not see a dashboard.
// It is raised before any upstream call is made.
type AuthorizationError struct {
	Dashboard models.Dashboard
	Role      models.Role
	Allowed   []models.Role
}

func (e *AuthorizationError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, role := range e.Allowed {
		allowed[i] = string(role)
	}
	return fmt.Sprintf("role %s may not view %s (requires %s)", e.Role, e.Dashboard, strings.Join(allowed, " or "))
}

// UpstreamError wraps a rejected metric source call or a success:false envelope.
type UpstreamError struct {
	Source  string
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("metric source %s failed: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("metric source %s reported failure: %s", e.Source, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// PartialDataError records a required field that fell back to its default
// because none of its aliases were present. It is reported, never returned.
type PartialDataError struct {
	Entity  string
	Field   string
	Aliases []string
}

func (e *PartialDataError) Error() string {
	return fmt.Sprintf("%s.%s missing (tried %s), default applied", e.Entity, e.Field, strings.Join(e.Aliases, ", "))
}
