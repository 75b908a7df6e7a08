package services

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"tourism-analytics/internal/models"
	"tourism-analytics/internal/repositories/repository_mocks"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
)

type AuditLoggerTestSuite struct {
	suite.Suite
	logs  *bytes.Buffer
	audit *AuditLogger
	now   time.Time
	ctx   context.Context
}

func TestAuditLoggerSuite(t *testing.T) {
	suite.Run(t, new(AuditLoggerTestSuite))
}

func (s *AuditLoggerTestSuite) SetupTest() {
	s.logs = &bytes.Buffer{}
	s.audit = NewAuditLogger(slog.New(slog.NewJSONHandler(s.logs, nil))).(*AuditLogger)
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.audit.now = func() time.Time { return s.now }
	s.ctx = ContextWithTraceID(context.Background(), "trace-abc")
}

func (s *AuditLoggerTestSuite) events() []map[string]interface{} {
	var events []map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(s.logs.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var event map[string]interface{}
		s.Require().NoError(json.Unmarshal(line, &event))
		events = append(events, event)
	}
	return events
}

func (s *AuditLoggerTestSuite) TestTraceIDContext() {
	s.Equal("trace-abc", TraceIDFromContext(s.ctx))
	s.Empty(TraceIDFromContext(context.Background()))
}

func (s *AuditLoggerTestSuite) TestLogViewServed_Live() {
	s.audit.LogViewServed(s.ctx, &models.ViewModel{
		Dashboard:  models.DashboardCityOverview,
		Filters:    models.Filters{Period: models.PeriodQuarter},
		DataOrigin: models.DataOriginLive,
		Sequence:   4,
	}, 1500*time.Millisecond)

	events := s.events()
	s.Require().Len(events, 1)
	event := events[0]
	s.Equal("INFO", event["level"])
	s.Equal("analytics_view_served", event["event_type"])
	s.Equal("city-overview", event["dashboard"])
	s.Equal("live", event["data_origin"])
	s.Equal("quarter", event["period"])
	s.Equal(4.0, event["sequence"])
	s.Equal(1500.0, event["duration_ms"])
	s.Equal("trace-abc", event["trace_id"])
	s.Equal("2024-06-01T12:00:00Z", event["timestamp"])
	s.NotContains(event, "fallback_reason")
}

func (s *AuditLoggerTestSuite) TestLogViewServed_Fallback() {
	s.audit.LogViewServed(context.Background(), &models.ViewModel{
		Dashboard:      models.DashboardPredictiveAnalytics,
		DataOrigin:     models.DataOriginFallback,
		FallbackReason: models.FallbackReasonUpstream,
	}, 0)

	event := s.events()[0]
	s.Equal("fallback", event["data_origin"])
	s.Equal("upstream", event["fallback_reason"])
	s.Equal("", event["trace_id"])
}

func (s *AuditLoggerTestSuite) TestLogRefreshSuperseded() {
	s.audit.LogRefreshSuperseded(s.ctx, models.DashboardAttractionComparison, 2, 3)

	event := s.events()[0]
	s.Equal("analytics_refresh_superseded", event["event_type"])
	s.Equal("attraction-comparison", event["dashboard"])
	s.Equal(2.0, event["sequence"])
	s.Equal(3.0, event["latest_sequence"])
}

func (s *AuditLoggerTestSuite) TestLogCircuitBreakerStateChange_Levels() {
	s.audit.LogCircuitBreakerStateChange(s.ctx, "metric_source", models.CircuitClosed, models.CircuitOpen)
	s.audit.LogCircuitBreakerStateChange(s.ctx, "metric_source", models.CircuitHalfOpen, models.CircuitClosed)

	events := s.events()
	s.Require().Len(events, 2)
	s.Equal("WARN", events[0]["level"])
	s.Equal("open", events[0]["new_state"])
	s.Equal("INFO", events[1]["level"])
	s.Equal("half_open", events[1]["old_state"])
}

func (s *AuditLoggerTestSuite) TestOrchestratorReportsServedViews() {
	ctrl := gomock.NewController(s.T())
	defer ctrl.Finish()

	source := repository_mocks.NewMockMetricSourceInterface(ctrl)
	metrics := NewPrometheusMetrics(prometheus.NewRegistry())
	orchestrator := NewOrchestrator(DefaultRecipes()[0], source, NewFallbackSynthesizer(SeededRandomSource(7)), metrics,
		WithAuditLogger(s.audit))

	view := orchestrator.Build(s.ctx, models.Filters{})

	s.Equal(models.FallbackReasonUnauthenticated, view.FallbackReason)
	events := s.events()
	s.Require().Len(events, 1)
	s.Equal("analytics_view_served", events[0]["event_type"])
	s.Equal("unauthenticated", events[0]["fallback_reason"])
	s.Equal("trace-abc", events[0]["trace_id"])
}
