package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tourism-analytics/internal/models"
	"tourism-analytics/internal/repositories"
	"tourism-analytics/internal/repositories/repository_mocks"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const (
	liveCityMetrics = `{"summary": {"totalAttractions": 10, "totalVisitors": 4000}}`
	liveCategories  = `[
		{"category": "Museums", "count": 4, "totalVisitors": 1000, "totalRevenue": 20000, "avgRating": 4.5},
		{"category": "Parks", "count": 6, "totalVisitors": 3000, "totalRevenue": 15000, "avgRating": 4.0}
	]`
	liveRevenue      = `[{"source": "Tickets", "amount": 30000}, {"source": "Food", "amount": 5000}]`
	liveTrends       = `[{"period": "Jan", "visitors": 3200}, {"period": "Feb", "visitors": 4000}]`
	liveDemographics = `[{"segment": "18-24", "visitors": 1000}, {"segment": "25-34", "visitors": 3000}]`
	liveBenchmarks   = `[{"metric": "Average Rating", "industryAvg": 4.0, "cityAvg": 4.2, "topPerformer": 4.8, "unit": "stars"}]`
	liveRecommend    = `[{"attractionId": 12, "attractionName": "Harbor Museum", "category": "Museums", "issue": "Queues", "priority": "high", "recommendations": ["Timed entry"]}]`
	liveForecasts    = `[{"period": "Mar", "optimistic": 5200, "realistic": 4600, "pessimistic": 4100, "confidence": 80}]`
)

var livePayloads = map[string]string{
	repositories.SourceCityMetrics:         liveCityMetrics,
	repositories.SourceCategoryPerformance: liveCategories,
	repositories.SourceRevenueAnalysis:     liveRevenue,
	repositories.SourceVisitorTrends:       liveTrends,
	repositories.SourceDemographics:        liveDemographics,
	repositories.SourceBenchmarks:          liveBenchmarks,
	repositories.SourceRecommendations:     liveRecommend,
	repositories.SourceForecasts:           liveForecasts,
}

type OrchestratorTestSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	source      *repository_mocks.MockMetricSourceInterface
	metrics     *PrometheusMetrics
	synthesizer *FallbackSynthesizer
	now         time.Time
	ctx         context.Context
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}

func (s *OrchestratorTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.source = repository_mocks.NewMockMetricSourceInterface(s.ctrl)
	s.metrics = NewPrometheusMetrics(prometheus.NewRegistry()).(*PrometheusMetrics)
	s.synthesizer = NewFallbackSynthesizer(SeededRandomSource(42))
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = context.Background()
}

func (s *OrchestratorTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *OrchestratorTestSuite) newOrchestrator(recipe Recipe) *Orchestrator {
	return NewOrchestrator(recipe, s.source, s.synthesizer, s.metrics, WithClock(func() time.Time { return s.now }))
}

// expect registers an expectation for the source method behind a source name.
func (s *OrchestratorTestSuite) expect(source string) *gomock.Call {
	rec := s.source.EXPECT()
	switch source {
	case repositories.SourceCityMetrics:
		return rec.GetCityMetrics(gomock.Any(), gomock.Any())
	case repositories.SourceCategoryPerformance:
		return rec.GetCategoryPerformance(gomock.Any(), gomock.Any())
	case repositories.SourceRevenueAnalysis:
		return rec.GetRevenueAnalysis(gomock.Any(), gomock.Any())
	case repositories.SourceVisitorTrends:
		return rec.GetVisitorTrends(gomock.Any(), gomock.Any())
	case repositories.SourceDemographics:
		return rec.GetDemographics(gomock.Any(), gomock.Any())
	case repositories.SourceBenchmarks:
		return rec.GetBenchmarks(gomock.Any(), gomock.Any())
	case repositories.SourceRecommendations:
		return rec.GetImprovementRecommendations(gomock.Any(), gomock.Any())
	case repositories.SourceForecasts:
		return rec.GetForecastScenarios(gomock.Any(), gomock.Any())
	}
	s.FailNow("unknown source " + source)
	return nil
}

func (s *OrchestratorTestSuite) expectLive(recipe Recipe, times int) {
	for _, call := range recipe.Calls() {
		s.expect(call.Source).
			Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(livePayloads[call.Source])}, nil).
			Times(times)
	}
}

func authority() models.Filters {
	return models.Filters{Period: models.PeriodMonth, Role: models.RoleAuthority}
}

// Live Path Tests

func (s *OrchestratorTestSuite) TestBuild_LiveCityOverview() {
	recipe := cityOverviewRecipe{}
	s.expectLive(recipe, 1)

	view := s.newOrchestrator(recipe).Build(s.ctx, authority())

	s.Require().NotNil(view)
	s.Equal(models.DataOriginLive, view.DataOrigin)
	s.Empty(view.FallbackReason)
	s.Nil(view.LastError)
	s.Equal(s.now, view.GeneratedAt)
	s.Equal(uint64(0), view.Sequence)

	s.Require().Len(view.Categories, 2)
	s.Require().NotNil(view.TopCategory)
	s.Equal("Museums", view.TopCategory.Category)
	s.True(decimal.NewFromInt(20).Equal(view.Categories[0].RevenuePerVisitor))

	s.False(view.Summary.Derived)
	s.Equal(10, view.Summary.TotalAttractions)
	s.Equal(int64(4000), view.Summary.TotalVisitors)
	s.Equal(4.2, view.Summary.AvgRating, "unsupplied rating is folded from categories")

	s.Require().Len(view.RevenueStreams, 2)
	s.Equal(85.71, view.RevenueStreams[0].Share)
	s.Require().Len(view.VisitorTrends, 2)
	s.Equal(25.0, view.VisitorTrends[1].GrowthRate)
	s.Require().Len(view.Demographics, 2)
	s.Equal(75.0, view.Demographics[1].Share)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.viewsBuilt.WithLabelValues("city-overview", "live")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.upstreamCalls.WithLabelValues(repositories.SourceDemographics, "success")))
}

func (s *OrchestratorTestSuite) TestBuild_LiveAttractionComparisonForOwner() {
	recipe := attractionComparisonRecipe{}
	s.expectLive(recipe, 1)

	filters := models.Filters{Period: models.PeriodQuarter, Role: models.RoleOwner}
	view := s.newOrchestrator(recipe).Build(s.ctx, filters)

	s.Equal(models.DataOriginLive, view.DataOrigin)
	s.Require().Len(view.Benchmarks, 1)
	s.Equal(5.0, view.Benchmarks[0].GapToIndustry)
	s.Require().Len(view.Opportunities, 1)
	s.Equal(12, view.Opportunities[0].AttractionID)
	s.True(view.Summary.Derived)
}

func (s *OrchestratorTestSuite) TestBuild_LivePredictiveAnalytics() {
	recipe := predictiveAnalyticsRecipe{}
	s.expectLive(recipe, 1)

	view := s.newOrchestrator(recipe).Build(s.ctx, authority())

	s.Equal(models.DataOriginLive, view.DataOrigin)
	s.Require().Len(view.Forecasts, 1)
	s.True(view.Forecasts[0].Ordered)
	s.Len(view.VisitorTrends, 2)
}

func (s *OrchestratorTestSuite) TestBuild_DefaultsPeriodBeforeFetching() {
	s.source.EXPECT().GetForecastScenarios(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filters models.Filters) (*models.SourceEnvelope, error) {
			s.Equal(models.PeriodMonth, filters.Period)
			return &models.SourceEnvelope{Success: true, Data: json.RawMessage(liveForecasts)}, nil
		})
	s.expect(repositories.SourceVisitorTrends).Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(liveTrends)}, nil)
	s.expect(repositories.SourceCategoryPerformance).Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(liveCategories)}, nil)

	view := s.newOrchestrator(predictiveAnalyticsRecipe{}).Build(s.ctx, models.Filters{Role: models.RoleAuthority})

	s.Equal(models.PeriodMonth, view.Filters.Period)
}

func (s *OrchestratorTestSuite) TestBuild_IsIdempotent() {
	recipe := cityOverviewRecipe{}
	s.expectLive(recipe, 2)
	orchestrator := s.newOrchestrator(recipe)

	first := orchestrator.Build(s.ctx, authority())
	second := orchestrator.Build(s.ctx, authority())

	s.Equal(first, second)
}

// Fallback Path Tests

func (s *OrchestratorTestSuite) TestBuild_UnauthenticatedServesDemoWithoutFetching() {
	orchestrator := s.newOrchestrator(cityOverviewRecipe{})

	view := orchestrator.Build(s.ctx, models.Filters{Period: models.PeriodMonth})

	s.Equal(models.DataOriginFallback, view.DataOrigin)
	s.Equal(models.FallbackReasonUnauthenticated, view.FallbackReason)
	s.Nil(view.LastError)
	s.Len(view.Categories, len(fallbackCatalogue))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.fallbacks.WithLabelValues("city-overview", "unauthenticated")))
}

func (s *OrchestratorTestSuite) TestBuild_RoleMismatchServesDemoWithoutFetching() {
	orchestrator := s.newOrchestrator(cityOverviewRecipe{})

	view := orchestrator.Build(s.ctx, models.Filters{Period: models.PeriodMonth, Role: models.RoleOwner})

	s.Equal(models.DataOriginFallback, view.DataOrigin)
	s.Equal(models.FallbackReasonUnauthorized, view.FallbackReason)
	s.Nil(view.LastError, "a role mismatch is not an upstream error")
}

func (s *OrchestratorTestSuite) TestBuild_UpstreamErrorFallsBackWithMessage() {
	recipe := cityOverviewRecipe{}
	s.expect(repositories.SourceCityMetrics).Return(nil, errors.New("dial tcp: connection refused"))
	for _, call := range recipe.Calls()[1:] {
		s.expect(call.Source).
			Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(livePayloads[call.Source])}, nil).
			AnyTimes()
	}

	view := s.newOrchestrator(recipe).Build(s.ctx, authority())

	s.Equal(models.DataOriginFallback, view.DataOrigin)
	s.Equal(models.FallbackReasonUpstream, view.FallbackReason)
	s.Require().NotNil(view.LastError)
	s.Contains(*view.LastError, "Live analytics unavailable")
	s.Contains(*view.LastError, "connection refused")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.upstreamCalls.WithLabelValues(repositories.SourceCityMetrics, "error")))

	s.Require().NotEmpty(view.Categories)
	var attractions int
	var visitors int64
	for _, stat := range view.Categories {
		attractions += stat.Count
		visitors += stat.TotalVisitors
	}
	s.Equal(attractions, view.Summary.TotalAttractions, "summary is folded from the synthesized categories")
	s.Equal(visitors, view.Summary.TotalVisitors)
}

func (s *OrchestratorTestSuite) TestBuild_NeverMixesLiveAndSynthesizedData() {
	recipe := attractionComparisonRecipe{}
	s.expect(repositories.SourceCategoryPerformance).
		Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(liveCategories)}, nil).AnyTimes()
	s.expect(repositories.SourceBenchmarks).
		Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(liveBenchmarks)}, nil).AnyTimes()
	s.expect(repositories.SourceRecommendations).
		Return(&models.SourceEnvelope{Success: false, Message: "recommendation engine offline"}, nil)

	view := s.newOrchestrator(recipe).Build(s.ctx, authority())

	s.Equal(models.DataOriginFallback, view.DataOrigin)
	s.Require().NotNil(view.LastError)
	s.Contains(*view.LastError, "recommendation engine offline")
	for i, stat := range view.Categories {
		s.Equal(fallbackCatalogue[i].name, stat.Category)
	}
	s.Len(view.Benchmarks, 4, "benchmarks come from the synthesizer too")
}

func (s *OrchestratorTestSuite) TestBuild_MalformedPayloadFallsBack() {
	recipe := predictiveAnalyticsRecipe{}
	s.expect(repositories.SourceForecasts).
		Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(`"not a list"`)}, nil)
	s.expect(repositories.SourceVisitorTrends).
		Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(liveTrends)}, nil)
	s.expect(repositories.SourceCategoryPerformance).
		Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(liveCategories)}, nil)

	view := s.newOrchestrator(recipe).Build(s.ctx, authority())

	s.Equal(models.DataOriginFallback, view.DataOrigin)
	s.Equal(models.FallbackReasonUpstream, view.FallbackReason)
	s.Require().NotNil(view.LastError)
	s.Contains(*view.LastError, repositories.SourceForecasts)
}

func (s *OrchestratorTestSuite) TestBuild_ReportsDefaultedFields() {
	recipe := predictiveAnalyticsRecipe{}
	s.expect(repositories.SourceForecasts).
		Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(`[{"period": "Mar", "realistic": 10, "optimistic": 12, "pessimistic": 8}]`)}, nil)
	s.expect(repositories.SourceVisitorTrends).
		Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(liveTrends)}, nil)
	s.expect(repositories.SourceCategoryPerformance).
		Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(liveCategories)}, nil)

	view := s.newOrchestrator(recipe).Build(s.ctx, authority())

	s.Equal(models.DataOriginLive, view.DataOrigin)
	s.Equal(0.0, view.Forecasts[0].Confidence)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.partialData.WithLabelValues(entityForecast, "confidence")))
}

// Refresh Tests

func (s *OrchestratorTestSuite) TestRefresh_StoresViewAndState() {
	recipe := cityOverviewRecipe{}
	s.expectLive(recipe, 1)
	orchestrator := s.newOrchestrator(recipe)

	s.Equal(StateIdle, orchestrator.State())
	s.Nil(orchestrator.Current())

	view, applied := orchestrator.Refresh(s.ctx, authority())

	s.True(applied)
	s.Equal(uint64(1), view.Sequence)
	s.Same(view, orchestrator.Current())
	s.Equal(StateReady, orchestrator.State())
	s.Nil(orchestrator.LastError())
}

func (s *OrchestratorTestSuite) TestRefresh_RecoveryClearsLastError() {
	recipe := predictiveAnalyticsRecipe{}
	orchestrator := s.newOrchestrator(recipe)

	s.expect(repositories.SourceForecasts).Return(nil, errors.New("timeout"))
	s.expect(repositories.SourceVisitorTrends).Return(&models.SourceEnvelope{Success: true}, nil).AnyTimes()
	s.expect(repositories.SourceCategoryPerformance).Return(&models.SourceEnvelope{Success: true}, nil).AnyTimes()

	_, applied := orchestrator.Refresh(s.ctx, authority())
	s.Require().True(applied)
	lastError := orchestrator.LastError()
	s.Require().NotNil(lastError)
	*lastError = "mutated"
	s.Contains(*orchestrator.LastError(), "timeout", "callers get a copy")

	s.expect(repositories.SourceForecasts).Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(liveForecasts)}, nil)

	view, applied := orchestrator.Refresh(s.ctx, authority())
	s.True(applied)
	s.Equal(models.DataOriginLive, view.DataOrigin)
	s.Nil(orchestrator.LastError())
}

func (s *OrchestratorTestSuite) TestRefresh_NewerTriggerWins() {
	recipe := attractionComparisonRecipe{}
	orchestrator := s.newOrchestrator(recipe)

	entered := make(chan struct{}, len(recipe.Calls()))
	block := func(ctx context.Context, _ models.Filters) (*models.SourceEnvelope, error) {
		entered <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	for _, call := range recipe.Calls() {
		s.expect(call.Source).DoAndReturn(block)
	}
	s.expectLive(recipe, 1)

	type result struct {
		view    *models.ViewModel
		applied bool
	}
	first := make(chan result, 1)
	go func() {
		view, applied := orchestrator.Refresh(s.ctx, authority())
		first <- result{view, applied}
	}()
	for range recipe.Calls() {
		<-entered
	}

	second, applied := orchestrator.Refresh(s.ctx, authority())
	stale := <-first

	s.True(applied)
	s.Equal(uint64(2), second.Sequence)
	s.Equal(models.DataOriginLive, second.DataOrigin)

	s.False(stale.applied)
	s.Equal(uint64(1), stale.view.Sequence)
	s.Equal(models.DataOriginFallback, stale.view.DataOrigin)

	s.Same(second, orchestrator.Current())
	s.Nil(orchestrator.LastError())
	s.Equal(StateReady, orchestrator.State())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.refreshSuperseded.WithLabelValues("attraction-comparison")))
}

func (s *OrchestratorTestSuite) TestRefresh_LateResponseForOlderFiltersIsDropped() {
	recipe := cityOverviewRecipe{}
	orchestrator := s.newOrchestrator(recipe)

	entered := make(chan struct{}, len(recipe.Calls()))
	release := make(chan struct{})
	for _, call := range recipe.Calls() {
		envelope := &models.SourceEnvelope{Success: true, Data: json.RawMessage(livePayloads[call.Source])}
		s.expect(call.Source).
			DoAndReturn(func(_ context.Context, filters models.Filters) (*models.SourceEnvelope, error) {
				if filters.Period == models.PeriodWeek {
					entered <- struct{}{}
					<-release
				}
				return envelope, nil
			}).
			Times(2)
	}

	type result struct {
		view    *models.ViewModel
		applied bool
	}
	weekly := make(chan result, 1)
	go func() {
		view, applied := orchestrator.Refresh(s.ctx, models.Filters{Period: models.PeriodWeek, Role: models.RoleAuthority})
		weekly <- result{view, applied}
	}()
	for range recipe.Calls() {
		<-entered
	}

	yearly, applied := orchestrator.Refresh(s.ctx, models.Filters{Period: models.PeriodYear, Role: models.RoleAuthority})
	s.True(applied)
	s.Equal(models.PeriodYear, yearly.Filters.Period)

	close(release)
	stale := <-weekly

	s.False(stale.applied)
	s.Equal(models.PeriodWeek, stale.view.Filters.Period)
	s.Same(yearly, orchestrator.Current())
	s.Equal(models.PeriodYear, orchestrator.Current().Filters.Period)
	s.Equal(models.DataOriginLive, orchestrator.Current().DataOrigin)
	s.Equal(StateReady, orchestrator.State())
}

func (s *OrchestratorTestSuite) TestAwaitNewer() {
	recipe := cityOverviewRecipe{}
	s.expectLive(recipe, 1)
	orchestrator := s.newOrchestrator(recipe)

	cancelled, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err := orchestrator.AwaitNewer(cancelled, 0)
	s.ErrorIs(err, context.Canceled, "nothing stored yet")

	view, applied := orchestrator.Refresh(s.ctx, authority())
	s.Require().True(applied)

	latest, err := orchestrator.AwaitNewer(s.ctx, 0)
	s.Require().NoError(err)
	s.Same(view, latest)

	_, err = orchestrator.AwaitNewer(cancelled, view.Sequence)
	s.ErrorIs(err, context.Canceled, "the stored view is not newer than itself")
}

func (s *OrchestratorTestSuite) TestRefresh_UnauthorizedLeavesLastErrorNil() {
	orchestrator := s.newOrchestrator(cityOverviewRecipe{})

	view, applied := orchestrator.Refresh(s.ctx, models.Filters{Period: models.PeriodWeek, Role: models.RoleOwner})

	s.True(applied)
	s.Equal(models.FallbackReasonUnauthorized, view.FallbackReason)
	s.Nil(orchestrator.LastError())
	s.Equal(StateReady, orchestrator.State())
}
