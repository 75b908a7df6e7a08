package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"tourism-analytics/internal/models"
	"tourism-analytics/internal/repositories/repository_mocks"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type AnalyticsServiceTestSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	source  *repository_mocks.MockMetricSourceInterface
	metrics *PrometheusMetrics
	breaker *CircuitBreaker
	now     time.Time
	ctx     context.Context
}

func TestAnalyticsServiceSuite(t *testing.T) {
	suite.Run(t, new(AnalyticsServiceTestSuite))
}

func (s *AnalyticsServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.source = repository_mocks.NewMockMetricSourceInterface(s.ctrl)
	s.metrics = NewPrometheusMetrics(prometheus.NewRegistry()).(*PrometheusMetrics)
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.breaker = newCircuitBreaker(DefaultCircuitBreakerConfig(), func() time.Time { return s.now })
	s.ctx = context.Background()
}

func (s *AnalyticsServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *AnalyticsServiceTestSuite) newService(config AnalyticsServiceConfig) *analyticsService {
	return newAnalyticsService(
		s.source,
		s.breaker,
		NewFallbackSynthesizer(SeededRandomSource(42)),
		s.metrics,
		config,
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *AnalyticsServiceTestSuite) expectPredictive(times int) {
	s.source.EXPECT().GetForecastScenarios(gomock.Any(), gomock.Any()).
		Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(liveForecasts)}, nil).Times(times)
	s.source.EXPECT().GetVisitorTrends(gomock.Any(), gomock.Any()).
		Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(liveTrends)}, nil).Times(times)
	s.source.EXPECT().GetCategoryPerformance(gomock.Any(), gomock.Any()).
		Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(liveCategories)}, nil).Times(times)
}

// BuildView Tests

func (s *AnalyticsServiceTestSuite) TestBuildView_UnknownDashboard() {
	service := s.newService(DefaultAnalyticsServiceConfig())

	view, err := service.BuildView(s.ctx, models.Dashboard("tourism-heatmap"), authority())

	s.ErrorIs(err, ErrUnknownDashboard)
	s.Nil(view)
}

func (s *AnalyticsServiceTestSuite) TestBuildView_Live() {
	s.expectPredictive(1)
	service := s.newService(DefaultAnalyticsServiceConfig())

	view, err := service.BuildView(s.ctx, models.DashboardPredictiveAnalytics, authority())

	s.Require().NoError(err)
	s.Equal(models.DataOriginLive, view.DataOrigin)
	s.Equal(models.DashboardPredictiveAnalytics, view.Dashboard)
}

func (s *AnalyticsServiceTestSuite) TestBuildView_WithoutCoalescingFetchesEveryTime() {
	s.expectPredictive(2)
	service := s.newService(AnalyticsServiceConfig{CoalesceRequests: false})

	_, err := service.BuildView(s.ctx, models.DashboardPredictiveAnalytics, authority())
	s.Require().NoError(err)
	_, err = service.BuildView(s.ctx, models.DashboardPredictiveAnalytics, authority())
	s.Require().NoError(err)
}

func (s *AnalyticsServiceTestSuite) TestBuildView_CoalescesConcurrentIdenticalRequests() {
	entered := make(chan struct{})
	release := make(chan struct{})
	s.source.EXPECT().GetForecastScenarios(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.Filters) (*models.SourceEnvelope, error) {
			close(entered)
			<-release
			return &models.SourceEnvelope{Success: true, Data: json.RawMessage(liveForecasts)}, nil
		})
	s.source.EXPECT().GetVisitorTrends(gomock.Any(), gomock.Any()).
		Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(liveTrends)}, nil)
	s.source.EXPECT().GetCategoryPerformance(gomock.Any(), gomock.Any()).
		Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(liveCategories)}, nil)

	service := s.newService(DefaultAnalyticsServiceConfig())

	views := make([]*models.ViewModel, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		views[0], _ = service.BuildView(s.ctx, models.DashboardPredictiveAnalytics, authority())
	}()
	<-entered
	go func() {
		defer wg.Done()
		views[1], _ = service.BuildView(s.ctx, models.DashboardPredictiveAnalytics, authority())
	}()

	// Give the second caller time to join the in-flight build.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	s.Require().NotNil(views[0])
	s.Same(views[0], views[1])
	s.Equal(2.0, testutil.ToFloat64(s.metrics.coalescedRequests.WithLabelValues(string(models.DashboardPredictiveAnalytics))))
}

func (s *AnalyticsServiceTestSuite) TestBuildView_CoalescedBuildIgnoresCallerCancellation() {
	s.source.EXPECT().GetForecastScenarios(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ models.Filters) (*models.SourceEnvelope, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return &models.SourceEnvelope{Success: true, Data: json.RawMessage(liveForecasts)}, nil
		})
	s.source.EXPECT().GetVisitorTrends(gomock.Any(), gomock.Any()).
		Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(liveTrends)}, nil)
	s.source.EXPECT().GetCategoryPerformance(gomock.Any(), gomock.Any()).
		Return(&models.SourceEnvelope{Success: true, Data: json.RawMessage(liveCategories)}, nil)

	service := s.newService(DefaultAnalyticsServiceConfig())
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	view, err := service.BuildView(ctx, models.DashboardPredictiveAnalytics, authority())

	s.Require().NoError(err)
	s.Equal(models.DataOriginLive, view.DataOrigin)
}

func (s *AnalyticsServiceTestSuite) TestBuildView_UnauthenticatedNeverFetches() {
	service := s.newService(DefaultAnalyticsServiceConfig())

	view, err := service.BuildView(s.ctx, models.DashboardCityOverview, models.Filters{})

	s.Require().NoError(err)
	s.Equal(models.FallbackReasonUnauthenticated, view.FallbackReason)
	s.Equal(models.PeriodMonth, view.Filters.Period)
}

// RefreshView Tests

func (s *AnalyticsServiceTestSuite) TestRefreshView_RequiresViewer() {
	service := s.newService(DefaultAnalyticsServiceConfig())

	_, err := service.RefreshView(s.ctx, "", models.DashboardCityOverview, authority())
	s.ErrorIs(err, ErrMissingViewer)

	_, err = service.RefreshView(s.ctx, "viewer-1", models.Dashboard("nope"), authority())
	s.ErrorIs(err, ErrUnknownDashboard)
}

func (s *AnalyticsServiceTestSuite) TestRefreshView_SessionsArePerViewer() {
	s.expectPredictive(3)
	service := s.newService(DefaultAnalyticsServiceConfig())

	first, err := service.RefreshView(s.ctx, "viewer-1", models.DashboardPredictiveAnalytics, authority())
	s.Require().NoError(err)
	again, err := service.RefreshView(s.ctx, "viewer-1", models.DashboardPredictiveAnalytics, authority())
	s.Require().NoError(err)
	other, err := service.RefreshView(s.ctx, "viewer-2", models.DashboardPredictiveAnalytics, authority())
	s.Require().NoError(err)

	s.Equal(uint64(1), first.Sequence)
	s.Equal(uint64(2), again.Sequence)
	s.Equal(uint64(1), other.Sequence)
	s.Len(service.sessions, 2)
	s.Equal(2.0, testutil.ToFloat64(s.metrics.activeSessions))
}

func (s *AnalyticsServiceTestSuite) TestRefreshView_SupersededCallerGetsNewerView() {
	recipe := predictiveAnalyticsRecipe{}
	entered := make(chan struct{}, len(recipe.Calls()))
	block := func(ctx context.Context, _ models.Filters) (*models.SourceEnvelope, error) {
		entered <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	s.source.EXPECT().GetForecastScenarios(gomock.Any(), gomock.Any()).DoAndReturn(block)
	s.source.EXPECT().GetVisitorTrends(gomock.Any(), gomock.Any()).DoAndReturn(block)
	s.source.EXPECT().GetCategoryPerformance(gomock.Any(), gomock.Any()).DoAndReturn(block)
	s.expectPredictive(1)

	service := s.newService(DefaultAnalyticsServiceConfig())

	type result struct {
		view *models.ViewModel
		err  error
	}
	stale := make(chan result, 1)
	go func() {
		view, err := service.RefreshView(s.ctx, "viewer-1", models.DashboardPredictiveAnalytics, authority())
		stale <- result{view, err}
	}()
	for range recipe.Calls() {
		<-entered
	}

	view, err := service.RefreshView(s.ctx, "viewer-1", models.DashboardPredictiveAnalytics, authority())

	s.Require().NoError(err)
	s.Equal(uint64(2), view.Sequence)

	superseded := <-stale
	s.Require().NoError(superseded.err)
	s.Same(view, superseded.view, "the superseded caller is answered with the winning view")
	s.Equal(models.DataOriginLive, superseded.view.DataOrigin)
}

func (s *AnalyticsServiceTestSuite) TestRefreshView_SupersededCallerGivesUp() {
	recipe := predictiveAnalyticsRecipe{}
	entered := make(chan struct{}, len(recipe.Calls()))
	release := make(chan struct{})
	blockUntilCancelled := func(ctx context.Context, _ models.Filters) (*models.SourceEnvelope, error) {
		entered <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	blockUntilReleased := func(_ context.Context, _ models.Filters) (*models.SourceEnvelope, error) {
		entered <- struct{}{}
		<-release
		return &models.SourceEnvelope{Success: true}, nil
	}
	// Expectations match in order: the first refresh takes the cancellable
	// calls, the second waits for release.
	s.source.EXPECT().GetForecastScenarios(gomock.Any(), gomock.Any()).DoAndReturn(blockUntilCancelled)
	s.source.EXPECT().GetVisitorTrends(gomock.Any(), gomock.Any()).DoAndReturn(blockUntilCancelled)
	s.source.EXPECT().GetCategoryPerformance(gomock.Any(), gomock.Any()).DoAndReturn(blockUntilCancelled)
	s.source.EXPECT().GetForecastScenarios(gomock.Any(), gomock.Any()).DoAndReturn(blockUntilReleased)
	s.source.EXPECT().GetVisitorTrends(gomock.Any(), gomock.Any()).DoAndReturn(blockUntilReleased)
	s.source.EXPECT().GetCategoryPerformance(gomock.Any(), gomock.Any()).DoAndReturn(blockUntilReleased)

	service := s.newService(DefaultAnalyticsServiceConfig())

	staleCtx, cancelStale := context.WithCancel(s.ctx)
	stale := make(chan error, 1)
	go func() {
		_, err := service.RefreshView(staleCtx, "viewer-1", models.DashboardPredictiveAnalytics, authority())
		stale <- err
	}()
	for range recipe.Calls() {
		<-entered
	}

	newer := make(chan error, 1)
	go func() {
		_, err := service.RefreshView(s.ctx, "viewer-1", models.DashboardPredictiveAnalytics, authority())
		newer <- err
	}()
	for range recipe.Calls() {
		<-entered
	}

	cancelStale()
	s.ErrorIs(<-stale, ErrRefreshSuperseded)

	close(release)
	s.NoError(<-newer)
}

// Session Sweep Tests

func (s *AnalyticsServiceTestSuite) TestSweepSessions_DropsIdleSessions() {
	service := s.newService(AnalyticsServiceConfig{CoalesceRequests: true, SessionTTL: 10 * time.Minute})

	_, err := service.RefreshView(s.ctx, "viewer-1", models.DashboardCityOverview, models.Filters{})
	s.Require().NoError(err)

	s.now = s.now.Add(5 * time.Minute)
	_, err = service.RefreshView(s.ctx, "viewer-2", models.DashboardCityOverview, models.Filters{})
	s.Require().NoError(err)

	s.Equal(0, service.sweepSessions(s.now.Add(time.Minute)))
	s.Equal(1, service.sweepSessions(s.now.Add(6*time.Minute)))
	s.Len(service.sessions, 1)
	s.Contains(service.sessions, "viewer-2|"+string(models.DashboardCityOverview))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.activeSessions))
}

func (s *AnalyticsServiceTestSuite) TestStartSessionSweeper_StopsWithContext() {
	service := s.newService(DefaultAnalyticsServiceConfig())
	ctx, cancel := context.WithCancel(s.ctx)

	done := make(chan struct{})
	go func() {
		service.StartSessionSweeper(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("sweeper did not stop")
	}
}

func (s *AnalyticsServiceTestSuite) TestDefaultSessionTTL() {
	service := s.newService(AnalyticsServiceConfig{})
	s.Equal(defaultSessionTTL, service.config.SessionTTL)
}

// Breaker Tests

func (s *AnalyticsServiceTestSuite) TestBreakerState() {
	service := s.newService(DefaultAnalyticsServiceConfig())
	s.Equal(models.CircuitClosed, service.BreakerState())

	for i := 0; i < DefaultCircuitBreakerConfig().MaxFailures; i++ {
		s.breaker.RecordFailure()
	}
	s.Equal(models.CircuitOpen, service.BreakerState())

	withoutBreaker := newAnalyticsService(s.source, nil, NewFallbackSynthesizer(SeededRandomSource(1)), s.metrics, DefaultAnalyticsServiceConfig())
	s.Equal(models.CircuitClosed, withoutBreaker.BreakerState())
}

func (s *AnalyticsServiceTestSuite) TestRefreshView_UsesGuardedSource() {
	guarded := NewGuardedMetricSource(s.source, s.breaker, s.metrics, nil)
	service := newAnalyticsService(guarded, s.breaker, NewFallbackSynthesizer(SeededRandomSource(42)), s.metrics, DefaultAnalyticsServiceConfig())
	for i := 0; i < DefaultCircuitBreakerConfig().MaxFailures; i++ {
		s.breaker.RecordFailure()
	}

	view, err := service.RefreshView(s.ctx, "viewer-1", models.DashboardCityOverview, authority())

	s.Require().NoError(err)
	s.Equal(models.FallbackReasonUpstream, view.FallbackReason)
	s.Require().NotNil(view.LastError)
	s.Contains(*view.LastError, ErrCircuitBreakerOpen.Error())
	s.Equal(DefaultCircuitBreakerConfig().MaxFailures, s.breaker.GetFailureCount(), "short-circuited calls are not counted")
}
