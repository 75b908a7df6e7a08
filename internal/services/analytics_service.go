package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tourism-analytics/internal/models"
	"tourism-analytics/internal/repositories"

	"golang.org/x/sync/singleflight"
)

var (
	ErrMissingViewer     = errors.New("viewer id is required for refresh")
	ErrRefreshSuperseded = errors.New("refresh superseded by a newer request")
)

const (
	defaultSessionTTL     = 30 * time.Minute
	sessionSweepFrequency = time.Minute
)

type AnalyticsServiceConfig struct {
	// CoalesceRequests shares one in-flight build between identical
	// concurrent BuildView calls.
	CoalesceRequests bool
	SessionTTL       time.Duration
}

func DefaultAnalyticsServiceConfig() AnalyticsServiceConfig {
	return AnalyticsServiceConfig{
		CoalesceRequests: true,
		SessionTTL:       defaultSessionTTL,
	}
}

type analyticsService struct {
	config      AnalyticsServiceConfig
	source      repositories.MetricSourceInterface
	synthesizer *FallbackSynthesizer
	metrics     MetricsRecorderInterface
	breaker     CircuitBreakerInterface
	opts        []OrchestratorOption

	recipes   map[models.Dashboard]Recipe
	stateless map[models.Dashboard]*Orchestrator
	group     singleflight.Group

	mu       sync.Mutex
	sessions map[string]*Orchestrator
}

// NewAnalyticsService wires every dashboard recipe to the metric source. The
// source should already be guarded by breaker; the breaker is kept here for
// health reporting.
func NewAnalyticsService(
	source repositories.MetricSourceInterface,
	breaker CircuitBreakerInterface,
	synthesizer *FallbackSynthesizer,
	metrics MetricsRecorderInterface,
	config AnalyticsServiceConfig,
	opts ...OrchestratorOption,
) AnalyticsServiceInterface {
	return newAnalyticsService(source, breaker, synthesizer, metrics, config, opts...)
}

func newAnalyticsService(
	source repositories.MetricSourceInterface,
	breaker CircuitBreakerInterface,
	synthesizer *FallbackSynthesizer,
	metrics MetricsRecorderInterface,
	config AnalyticsServiceConfig,
	opts ...OrchestratorOption,
) *analyticsService {
	if config.SessionTTL <= 0 {
		config.SessionTTL = defaultSessionTTL
	}

	s := &analyticsService{
		config:      config,
		source:      source,
		synthesizer: synthesizer,
		metrics:     metrics,
		breaker:     breaker,
		opts:        opts,
		recipes:     make(map[models.Dashboard]Recipe),
		stateless:   make(map[models.Dashboard]*Orchestrator),
		sessions:    make(map[string]*Orchestrator),
	}

	for _, recipe := range DefaultRecipes() {
		s.recipes[recipe.Dashboard()] = recipe
		s.stateless[recipe.Dashboard()] = NewOrchestrator(recipe, source, synthesizer, metrics, opts...)
	}
	return s
}

func (s *analyticsService) BuildView(ctx context.Context, dashboard models.Dashboard, filters models.Filters) (*models.ViewModel, error) {
	orchestrator, ok := s.stateless[dashboard]
	if !ok {
		return nil, ErrUnknownDashboard
	}
	filters = filters.WithDefaults()

	if !s.config.CoalesceRequests {
		return orchestrator.Build(ctx, filters), nil
	}

	// The shared build must outlive any single caller that gives up.
	key := string(dashboard) + "|" + filters.Key()
	result, _, shared := s.group.Do(key, func() (interface{}, error) {
		return orchestrator.Build(context.WithoutCancel(ctx), filters), nil
	})
	if shared {
		s.metrics.IncrementCounter("analytics.request.coalesced", map[string]string{
			"dashboard": string(dashboard),
		})
	}

	return result.(*models.ViewModel), nil
}

func (s *analyticsService) RefreshView(ctx context.Context, viewerID string, dashboard models.Dashboard, filters models.Filters) (*models.ViewModel, error) {
	if viewerID == "" {
		return nil, ErrMissingViewer
	}
	if _, ok := s.recipes[dashboard]; !ok {
		return nil, ErrUnknownDashboard
	}

	session := s.session(viewerID, dashboard)
	view, applied := session.Refresh(ctx, filters)
	if !applied {
		latest, err := session.AwaitNewer(ctx, view.Sequence)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRefreshSuperseded, err)
		}
		slog.Debug("answering superseded refresh with newer view",
			"viewer_id", viewerID,
			"dashboard", dashboard,
			"sequence", view.Sequence,
			"served_sequence", latest.Sequence)
		return latest, nil
	}

	return view, nil
}

func (s *analyticsService) BreakerState() models.CircuitBreakerState {
	if s.breaker == nil {
		return models.CircuitClosed
	}
	return s.breaker.GetState()
}

func (s *analyticsService) session(viewerID string, dashboard models.Dashboard) *Orchestrator {
	key := viewerID + "|" + string(dashboard)

	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[key]; ok {
		return session
	}

	session := NewOrchestrator(s.recipes[dashboard], s.source, s.synthesizer, s.metrics, s.opts...)
	s.sessions[key] = session
	s.metrics.RecordGauge("analytics.sessions.active", float64(len(s.sessions)), nil)
	return session
}

// StartSessionSweeper drops refresh sessions idle longer than the TTL until
// ctx is done.
func (s *analyticsService) StartSessionSweeper(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepFrequency)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sweepSessions(now)
		}
	}
}

func (s *analyticsService) sweepSessions(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, session := range s.sessions {
		if now.Sub(session.idleSince()) > s.config.SessionTTL {
			delete(s.sessions, key)
			removed++
		}
	}

	if removed > 0 {
		slog.Debug("swept idle analytics sessions", "removed", removed, "remaining", len(s.sessions))
		s.metrics.RecordGauge("analytics.sessions.active", float64(len(s.sessions)), nil)
	}
	return removed
}

// SessionSweeper is implemented by services that keep per-viewer state.
type SessionSweeper interface {
	StartSessionSweeper(ctx context.Context)
}
