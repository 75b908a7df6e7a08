package services

import (
	"context"
	"encoding/json"
	"time"

	"tourism-analytics/internal/models"

	"github.com/google/uuid"
)

// AnalyticsServiceInterface builds dashboard view models. It never fails
// because a source is down; errors only report unusable requests.
type AnalyticsServiceInterface interface {
	// BuildView assembles one view for a single request
	BuildView(ctx context.Context, dashboard models.Dashboard, filters models.Filters) (*models.ViewModel, error)

	// RefreshView re-runs a viewer's dashboard session; the latest trigger
	// wins and superseded callers receive the winning view
	RefreshView(ctx context.Context, viewerID string, dashboard models.Dashboard, filters models.Filters) (*models.ViewModel, error)

	// BreakerState reports the upstream circuit breaker
	BreakerState() models.CircuitBreakerState
}

// Recipe describes one dashboard: the sources it needs, how their payloads
// become a view, and how the same view is synthesized.
type Recipe interface {
	Dashboard() models.Dashboard
	AllowedRoles() []models.Role
	Calls() []SourceCall
	Assemble(n *Normalizer, payloads map[string]json.RawMessage, view *models.ViewModel) error
	Synthesize(run *FallbackRun, view *models.ViewModel)
}

type MetricsRecorderInterface interface {
	IncrementCounter(name string, tags map[string]string)
	RecordProcessingTime(name string, duration time.Duration)
	RecordGauge(name string, value float64, tags map[string]string)
}

type CircuitBreakerInterface interface {
	IsOpen() bool
	RecordSuccess()
	RecordFailure()
	GetState() models.CircuitBreakerState
	Reset()
	GetFailureCount() int
}

// AuditLoggerInterface records analytics events for later inspection
type AuditLoggerInterface interface {
	LogViewServed(ctx context.Context, view *models.ViewModel, duration time.Duration)
	LogRefreshSuperseded(ctx context.Context, dashboard models.Dashboard, sequence, latest uint64)
	LogCircuitBreakerStateChange(ctx context.Context, service string, oldState, newState models.CircuitBreakerState)
}

type TokenServiceInterface interface {
	GenerateViewerToken(viewerID uuid.UUID, role models.Role) (string, time.Time, error)
	ValidateViewerToken(tokenString string) (*models.ViewerClaims, error)
	ExtractTokenFromHeader(authHeader string) (string, error)
}
