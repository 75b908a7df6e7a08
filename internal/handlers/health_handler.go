package handlers

import (
	"net/http"
	"time"

	"tourism-analytics/internal/models"

	"github.com/labstack/echo/v4"
)

// BreakerStateProvider reports the upstream circuit breaker state
type BreakerStateProvider interface {
	BreakerState() models.CircuitBreakerState
}

// HealthCheckHandler handles the health check endpoint
type HealthCheckHandler struct {
	breaker BreakerStateProvider
}

func NewHealthCheckHandler(breaker BreakerStateProvider) *HealthCheckHandler {
	return &HealthCheckHandler{breaker: breaker}
}

// HealthCheck reports liveness. The service stays up while the metric source
// is down because dashboards fall back to synthesized data, so an open
// breaker is reported as degraded with 200 OK.
//
// Method: GET /health
//
// Success Response: 200 OK
//   - status: healthy or degraded
//   - upstream: closed, open or half_open
//   - time: RFC 3339 timestamp
func (h *HealthCheckHandler) HealthCheck(c echo.Context) error {
	state := h.breaker.BreakerState()

	status := "healthy"
	if state != models.CircuitClosed {
		status = "degraded"
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":   status,
		"upstream": state.String(),
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
