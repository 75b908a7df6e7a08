package services

import (
	"context"
	"errors"
	"log/slog"

	"tourism-analytics/internal/models"
	"tourism-analytics/internal/repositories"
)

const breakerService = "metric_source"

// guardedMetricSource wraps a metric source with a circuit breaker. Calls
// made while the breaker is open fail immediately with ErrCircuitBreakerOpen.
type guardedMetricSource struct {
	next    repositories.MetricSourceInterface
	breaker CircuitBreakerInterface
	metrics MetricsRecorderInterface
	audit   AuditLoggerInterface
}

func NewGuardedMetricSource(
	next repositories.MetricSourceInterface,
	breaker CircuitBreakerInterface,
	metrics MetricsRecorderInterface,
	audit AuditLoggerInterface,
) repositories.MetricSourceInterface {
	if audit == nil {
		audit = NewAuditLogger(nil)
	}
	return &guardedMetricSource{
		next:    next,
		breaker: breaker,
		metrics: metrics,
		audit:   audit,
	}
}

func (g *guardedMetricSource) GetCityMetrics(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error) {
	return g.guard(ctx, repositories.SourceCityMetrics, filters, g.next.GetCityMetrics)
}

func (g *guardedMetricSource) GetCategoryPerformance(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error) {
	return g.guard(ctx, repositories.SourceCategoryPerformance, filters, g.next.GetCategoryPerformance)
}

func (g *guardedMetricSource) GetRevenueAnalysis(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error) {
	return g.guard(ctx, repositories.SourceRevenueAnalysis, filters, g.next.GetRevenueAnalysis)
}

func (g *guardedMetricSource) GetVisitorTrends(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error) {
	return g.guard(ctx, repositories.SourceVisitorTrends, filters, g.next.GetVisitorTrends)
}

func (g *guardedMetricSource) GetDemographics(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error) {
	return g.guard(ctx, repositories.SourceDemographics, filters, g.next.GetDemographics)
}

func (g *guardedMetricSource) GetBenchmarks(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error) {
	return g.guard(ctx, repositories.SourceBenchmarks, filters, g.next.GetBenchmarks)
}

func (g *guardedMetricSource) GetImprovementRecommendations(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error) {
	return g.guard(ctx, repositories.SourceRecommendations, filters, g.next.GetImprovementRecommendations)
}

func (g *guardedMetricSource) GetForecastScenarios(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error) {
	return g.guard(ctx, repositories.SourceForecasts, filters, g.next.GetForecastScenarios)
}

type sourceFetch func(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error)

func (g *guardedMetricSource) guard(ctx context.Context, source string, filters models.Filters, fetch sourceFetch) (*models.SourceEnvelope, error) {
	if g.breaker.IsOpen() {
		return nil, ErrCircuitBreakerOpen
	}

	envelope, err := fetch(ctx, filters)

	// Cancellation says nothing about upstream health.
	if errors.Is(err, context.Canceled) {
		return envelope, err
	}

	if err != nil || envelope == nil || !envelope.Success {
		before := g.breaker.GetState()
		g.breaker.RecordFailure()
		if after := g.breaker.GetState(); after == models.CircuitOpen && before != models.CircuitOpen {
			slog.Debug("metric source failure opened the breaker",
				"source", source,
				"failures", g.breaker.GetFailureCount(),
				"error", err)
			g.audit.LogCircuitBreakerStateChange(ctx, breakerService, before, after)
			g.metrics.IncrementCounter("circuit_breaker.open", map[string]string{"service": breakerService})
		}
		return envelope, err
	}

	before := g.breaker.GetState()
	g.breaker.RecordSuccess()
	if after := g.breaker.GetState(); after == models.CircuitClosed && before != models.CircuitClosed {
		g.audit.LogCircuitBreakerStateChange(ctx, breakerService, before, after)
		g.metrics.IncrementCounter("circuit_breaker.closed", map[string]string{"service": breakerService})
	}
	return envelope, nil
}
