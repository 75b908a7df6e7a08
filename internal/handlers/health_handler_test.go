package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tourism-analytics/internal/models"
	"tourism-analytics/internal/services/service_mocks"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
)

func TestHealthCheckHandler(t *testing.T) {
	suite.Run(t, new(HealthCheckHandlerSuite))
}

type HealthCheckHandlerSuite struct {
	suite.Suite
	ctrl             *gomock.Controller
	analyticsService *service_mocks.MockAnalyticsServiceInterface
	handler          *HealthCheckHandler
	e                *echo.Echo
}

func (s *HealthCheckHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.analyticsService = service_mocks.NewMockAnalyticsServiceInterface(s.ctrl)
	s.handler = NewHealthCheckHandler(s.analyticsService)
	s.e = echo.New()
}

func (s *HealthCheckHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HealthCheckHandlerSuite) check() (int, map[string]string) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := s.e.NewContext(req, rec)

	s.Require().NoError(s.handler.HealthCheck(c))

	var body map[string]string
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func (s *HealthCheckHandlerSuite) TestHealthy() {
	s.analyticsService.EXPECT().BreakerState().Return(models.CircuitClosed)

	code, body := s.check()

	s.Equal(http.StatusOK, code)
	s.Equal("healthy", body["status"])
	s.Equal("closed", body["upstream"])
	s.NotEmpty(body["time"])
}

func (s *HealthCheckHandlerSuite) TestDegradedStillOK() {
	testCases := []struct {
		state    models.CircuitBreakerState
		upstream string
	}{
		{models.CircuitOpen, "open"},
		{models.CircuitHalfOpen, "half_open"},
	}

	for _, tc := range testCases {
		s.Run(tc.upstream, func() {
			s.analyticsService.EXPECT().BreakerState().Return(tc.state)

			code, body := s.check()

			s.Equal(http.StatusOK, code, "fallback keeps dashboards available")
			s.Equal("degraded", body["status"])
			s.Equal(tc.upstream, body["upstream"])
		})
	}
}
