package services

import (
	"context"
	"log/slog"
	"time"

	"tourism-analytics/internal/models"
)

type traceIDKey struct{}

// ContextWithTraceID attaches a request trace ID for audit events.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceIDFromContext returns the trace ID set by ContextWithTraceID, or "".
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	traceID, _ := ctx.Value(traceIDKey{}).(string)
	return traceID
}

// AuditLogger writes one structured line per analytics event. Every line
// carries an event_type so dashboards of served views can be built from logs.
type AuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewAuditLogger(logger *slog.Logger) AuditLoggerInterface {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger: logger,
		now:    time.Now,
	}
}

func (al *AuditLogger) LogViewServed(ctx context.Context, view *models.ViewModel, duration time.Duration) {
	attrs := []any{
		slog.String("event_type", "analytics_view_served"),
		slog.String("dashboard", string(view.Dashboard)),
		slog.String("data_origin", string(view.DataOrigin)),
		slog.String("period", string(view.Filters.Period)),
		slog.Uint64("sequence", view.Sequence),
		slog.Int64("duration_ms", duration.Milliseconds()),
		slog.Time("timestamp", al.now()),
		slog.String("trace_id", TraceIDFromContext(ctx)),
	}
	if view.FallbackReason != "" {
		attrs = append(attrs, slog.String("fallback_reason", string(view.FallbackReason)))
	}

	al.logger.InfoContext(ctx, "analytics view served", attrs...)
}

func (al *AuditLogger) LogRefreshSuperseded(ctx context.Context, dashboard models.Dashboard, sequence, latest uint64) {
	al.logger.InfoContext(ctx, "analytics refresh superseded",
		slog.String("event_type", "analytics_refresh_superseded"),
		slog.String("dashboard", string(dashboard)),
		slog.Uint64("sequence", sequence),
		slog.Uint64("latest_sequence", latest),
		slog.Time("timestamp", al.now()),
		slog.String("trace_id", TraceIDFromContext(ctx)),
	)
}

func (al *AuditLogger) LogCircuitBreakerStateChange(ctx context.Context, service string, oldState, newState models.CircuitBreakerState) {
	level := slog.LevelInfo
	if newState == models.CircuitOpen {
		level = slog.LevelWarn
	}

	al.logger.Log(ctx, level, "circuit breaker state change",
		slog.String("event_type", "circuit_breaker_state_change"),
		slog.String("service", service),
		slog.String("old_state", oldState.String()),
		slog.String("new_state", newState.String()),
		slog.Time("timestamp", al.now()),
		slog.String("trace_id", TraceIDFromContext(ctx)),
	)
}
