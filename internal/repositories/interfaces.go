package repositories

import (
	"context"

	"tourism-analytics/internal/models"
)

// MetricSourceInterface defines one call per upstream analytics concern.
// Each call resolves or fails independently; callers decide what a failure means.
type MetricSourceInterface interface {
	GetCityMetrics(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error)
	GetCategoryPerformance(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error)
	GetRevenueAnalysis(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error)
	GetVisitorTrends(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error)
	GetDemographics(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error)
	GetBenchmarks(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error)
	GetImprovementRecommendations(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error)
	GetForecastScenarios(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error)
}
