package services

import (
	"errors"
	"sync"
	"time"

	"tourism-analytics/internal/models"
)

var (
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

type CircuitBreakerConfig struct {
	MaxFailures     int
	ResetTimeout    time.Duration
	HalfOpenMaxSucc int
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures:     5,
		ResetTimeout:    30 * time.Second,
		HalfOpenMaxSucc: 2,
	}
}

// CircuitBreaker guards the metric source. While open, live fetches are
// skipped and dashboards go straight to fallback.
type CircuitBreaker struct {
	mu                sync.RWMutex
	config            CircuitBreakerConfig
	state             models.CircuitBreakerState
	failures          int
	halfOpenSuccesses int
	lastFailureTime   time.Time
	now               func() time.Time
}

func NewCircuitBreaker(config CircuitBreakerConfig) CircuitBreakerInterface {
	return newCircuitBreaker(config, time.Now)
}

func newCircuitBreaker(config CircuitBreakerConfig, now func() time.Time) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 1
	}
	if config.HalfOpenMaxSucc <= 0 {
		config.HalfOpenMaxSucc = 1
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = DefaultCircuitBreakerConfig().ResetTimeout
	}
	return &CircuitBreaker{
		config: config,
		state:  models.CircuitClosed,
		now:    now,
	}
}

// IsOpen also moves an expired open breaker to half-open, letting probes through.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == models.CircuitOpen && cb.now().Sub(cb.lastFailureTime) > cb.config.ResetTimeout {
		cb.state = models.CircuitHalfOpen
		cb.halfOpenSuccesses = 0
		return false
	}

	return cb.state == models.CircuitOpen
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case models.CircuitHalfOpen:
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.config.HalfOpenMaxSucc {
			cb.reset()
		}
	case models.CircuitClosed:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = cb.now()

	switch cb.state {
	case models.CircuitHalfOpen:
		cb.open()
	case models.CircuitClosed:
		cb.failures++
		if cb.failures >= cb.config.MaxFailures {
			cb.open()
		}
	}
}

func (cb *CircuitBreaker) open() {
	cb.state = models.CircuitOpen
	cb.halfOpenSuccesses = 0
}

func (cb *CircuitBreaker) reset() {
	cb.state = models.CircuitClosed
	cb.failures = 0
	cb.halfOpenSuccesses = 0
}

func (cb *CircuitBreaker) GetState() models.CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.reset()
}

func (cb *CircuitBreaker) GetFailureCount() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}
