package services

import (
	"context"
	"encoding/json"
	"fmt"

	"tourism-analytics/internal/models"
	"tourism-analytics/internal/repositories"
)

// SourceCall is one upstream request a recipe needs.
type SourceCall struct {
	Source string
	Fetch  func(ctx context.Context, src repositories.MetricSourceInterface, filters models.Filters) (*models.SourceEnvelope, error)
}

var (
	callCityMetrics = SourceCall{repositories.SourceCityMetrics, func(ctx context.Context, src repositories.MetricSourceInterface, f models.Filters) (*models.SourceEnvelope, error) {
		return src.GetCityMetrics(ctx, f)
	}}
	callCategoryPerformance = SourceCall{repositories.SourceCategoryPerformance, func(ctx context.Context, src repositories.MetricSourceInterface, f models.Filters) (*models.SourceEnvelope, error) {
		return src.GetCategoryPerformance(ctx, f)
	}}
	callRevenueAnalysis = SourceCall{repositories.SourceRevenueAnalysis, func(ctx context.Context, src repositories.MetricSourceInterface, f models.Filters) (*models.SourceEnvelope, error) {
		return src.GetRevenueAnalysis(ctx, f)
	}}
	callVisitorTrends = SourceCall{repositories.SourceVisitorTrends, func(ctx context.Context, src repositories.MetricSourceInterface, f models.Filters) (*models.SourceEnvelope, error) {
		return src.GetVisitorTrends(ctx, f)
	}}
	callDemographics = SourceCall{repositories.SourceDemographics, func(ctx context.Context, src repositories.MetricSourceInterface, f models.Filters) (*models.SourceEnvelope, error) {
		return src.GetDemographics(ctx, f)
	}}
	callBenchmarks = SourceCall{repositories.SourceBenchmarks, func(ctx context.Context, src repositories.MetricSourceInterface, f models.Filters) (*models.SourceEnvelope, error) {
		return src.GetBenchmarks(ctx, f)
	}}
	callRecommendations = SourceCall{repositories.SourceRecommendations, func(ctx context.Context, src repositories.MetricSourceInterface, f models.Filters) (*models.SourceEnvelope, error) {
		return src.GetImprovementRecommendations(ctx, f)
	}}
	callForecasts = SourceCall{repositories.SourceForecasts, func(ctx context.Context, src repositories.MetricSourceInterface, f models.Filters) (*models.SourceEnvelope, error) {
		return src.GetForecastScenarios(ctx, f)
	}}
)

// DefaultRecipes returns the recipe for every dashboard.
func DefaultRecipes() []Recipe {
	return []Recipe{
		cityOverviewRecipe{},
		attractionComparisonRecipe{},
		predictiveAnalyticsRecipe{},
	}
}

// cityOverviewRecipe is the authority-wide dashboard.
type cityOverviewRecipe struct{}

func (cityOverviewRecipe) Dashboard() models.Dashboard { return models.DashboardCityOverview }

func (cityOverviewRecipe) AllowedRoles() []models.Role { return []models.Role{models.RoleAuthority} }

func (cityOverviewRecipe) Calls() []SourceCall {
	return []SourceCall{callCityMetrics, callCategoryPerformance, callRevenueAnalysis, callVisitorTrends, callDemographics}
}

func (cityOverviewRecipe) Assemble(n *Normalizer, payloads map[string]json.RawMessage, view *models.ViewModel) error {
	categories, err := n.NormalizeCategories(payloads[repositories.SourceCategoryPerformance])
	if err != nil {
		return fmt.Errorf("%s: %w", repositories.SourceCategoryPerformance, err)
	}
	summary, err := n.NormalizeSummary(payloads[repositories.SourceCityMetrics], categories)
	if err != nil {
		return fmt.Errorf("%s: %w", repositories.SourceCityMetrics, err)
	}
	streams, err := n.NormalizeRevenueStreams(payloads[repositories.SourceRevenueAnalysis])
	if err != nil {
		return fmt.Errorf("%s: %w", repositories.SourceRevenueAnalysis, err)
	}
	trends, err := n.NormalizeTrends(payloads[repositories.SourceVisitorTrends])
	if err != nil {
		return fmt.Errorf("%s: %w", repositories.SourceVisitorTrends, err)
	}
	demographics, err := n.NormalizeDemographics(payloads[repositories.SourceDemographics])
	if err != nil {
		return fmt.Errorf("%s: %w", repositories.SourceDemographics, err)
	}

	view.Categories = categories
	view.Summary = summary
	view.RevenueStreams = streams
	view.VisitorTrends = trends
	view.Demographics = demographics
	return nil
}

func (cityOverviewRecipe) Synthesize(run *FallbackRun, view *models.ViewModel) {
	view.Categories = run.Categories()
	view.Summary = SummarizeCategories(view.Categories)
	view.RevenueStreams = run.RevenueStreams(view.Summary)
	view.VisitorTrends = run.Trends(view.Summary)
	view.Demographics = run.Demographics(view.Summary)
}

// attractionComparisonRecipe compares categories or one attraction against
// benchmarks and lists improvement opportunities.
type attractionComparisonRecipe struct{}

func (attractionComparisonRecipe) Dashboard() models.Dashboard {
	return models.DashboardAttractionComparison
}

func (attractionComparisonRecipe) AllowedRoles() []models.Role {
	return []models.Role{models.RoleAuthority, models.RoleOwner}
}

func (attractionComparisonRecipe) Calls() []SourceCall {
	return []SourceCall{callCategoryPerformance, callBenchmarks, callRecommendations}
}

func (attractionComparisonRecipe) Assemble(n *Normalizer, payloads map[string]json.RawMessage, view *models.ViewModel) error {
	categories, err := n.NormalizeCategories(payloads[repositories.SourceCategoryPerformance])
	if err != nil {
		return fmt.Errorf("%s: %w", repositories.SourceCategoryPerformance, err)
	}
	benchmarks, err := n.NormalizeBenchmarks(payloads[repositories.SourceBenchmarks])
	if err != nil {
		return fmt.Errorf("%s: %w", repositories.SourceBenchmarks, err)
	}
	opportunities, err := n.NormalizeOpportunities(payloads[repositories.SourceRecommendations])
	if err != nil {
		return fmt.Errorf("%s: %w", repositories.SourceRecommendations, err)
	}

	view.Categories = categories
	view.Summary = SummarizeCategories(categories)
	view.Benchmarks = benchmarks
	view.Opportunities = opportunities
	return nil
}

func (attractionComparisonRecipe) Synthesize(run *FallbackRun, view *models.ViewModel) {
	view.Categories = run.Categories()
	view.Summary = SummarizeCategories(view.Categories)
	view.Benchmarks = run.Benchmarks(view.Summary)
	view.Opportunities = run.Opportunities()
}

// predictiveAnalyticsRecipe pairs visitor history with forecast scenarios.
type predictiveAnalyticsRecipe struct{}

func (predictiveAnalyticsRecipe) Dashboard() models.Dashboard {
	return models.DashboardPredictiveAnalytics
}

func (predictiveAnalyticsRecipe) AllowedRoles() []models.Role {
	return []models.Role{models.RoleAuthority, models.RoleOwner}
}

func (predictiveAnalyticsRecipe) Calls() []SourceCall {
	return []SourceCall{callForecasts, callVisitorTrends, callCategoryPerformance}
}

func (predictiveAnalyticsRecipe) Assemble(n *Normalizer, payloads map[string]json.RawMessage, view *models.ViewModel) error {
	forecasts, err := n.NormalizeForecasts(payloads[repositories.SourceForecasts])
	if err != nil {
		return fmt.Errorf("%s: %w", repositories.SourceForecasts, err)
	}
	trends, err := n.NormalizeTrends(payloads[repositories.SourceVisitorTrends])
	if err != nil {
		return fmt.Errorf("%s: %w", repositories.SourceVisitorTrends, err)
	}
	categories, err := n.NormalizeCategories(payloads[repositories.SourceCategoryPerformance])
	if err != nil {
		return fmt.Errorf("%s: %w", repositories.SourceCategoryPerformance, err)
	}

	view.Forecasts = forecasts
	view.VisitorTrends = trends
	view.Categories = categories
	view.Summary = SummarizeCategories(categories)
	return nil
}

func (predictiveAnalyticsRecipe) Synthesize(run *FallbackRun, view *models.ViewModel) {
	view.Categories = run.Categories()
	view.Summary = SummarizeCategories(view.Categories)
	view.VisitorTrends = run.Trends(view.Summary)
	view.Forecasts = run.Forecasts(view.Summary)
}

func roleAllowed(recipe Recipe, role models.Role) bool {
	for _, allowed := range recipe.AllowedRoles() {
		if allowed == role {
			return true
		}
	}
	return false
}

// finalizeView applies the derivations common to every dashboard.
func finalizeView(view *models.ViewModel) {
	if view.Categories == nil {
		view.Categories = []models.CategoryStat{}
	}
	if top, ok := TopCategoryBy(view.Categories, "totalRevenue"); ok {
		view.TopCategory = &top
	}
}
