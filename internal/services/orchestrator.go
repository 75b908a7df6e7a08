package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tourism-analytics/internal/models"
	"tourism-analytics/internal/repositories"

	"golang.org/x/sync/errgroup"
)

type OrchestratorState string

const (
	StateIdle           OrchestratorState = "idle"
	StateFetchingLive   OrchestratorState = "fetching_live"
	StateSucceeded      OrchestratorState = "succeeded"
	StateFailedAuth     OrchestratorState = "failed_auth"
	StateFailedUpstream OrchestratorState = "failed_upstream"
	StateAssembling     OrchestratorState = "assembling"
	StateSynthesizing   OrchestratorState = "synthesizing"
	StateReady          OrchestratorState = "ready"
)

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithClock overrides the clock used for GeneratedAt
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithAuditLogger routes view and refresh events to audit
func WithAuditLogger(audit AuditLoggerInterface) OrchestratorOption {
	return func(o *Orchestrator) {
		o.audit = audit
	}
}

// Orchestrator runs one dashboard recipe: it checks the caller's role, fans
// out to the recipe's sources, and either assembles live data or
// synthesizes a fallback. A view is always produced.
//
// Build is stateless. Refresh keeps the latest view for a viewer session and
// discards results from superseded triggers.
type Orchestrator struct {
	recipe      Recipe
	source      repositories.MetricSourceInterface
	normalizer  *Normalizer
	synthesizer *FallbackSynthesizer
	metrics     MetricsRecorderInterface
	audit       AuditLoggerInterface
	now         func() time.Time

	mu        sync.Mutex
	issued    uint64
	state     OrchestratorState
	current   *models.ViewModel
	lastError *string
	cancel    context.CancelFunc
	lastUsed  time.Time
	// applied is closed and replaced each time a refresh result is stored.
	applied chan struct{}
}

func NewOrchestrator(
	recipe Recipe,
	source repositories.MetricSourceInterface,
	synthesizer *FallbackSynthesizer,
	metrics MetricsRecorderInterface,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		recipe:      recipe,
		source:      source,
		synthesizer: synthesizer,
		metrics:     metrics,
		audit:       NewAuditLogger(nil),
		now:         time.Now,
		state:       StateIdle,
		applied:     make(chan struct{}),
	}
	o.normalizer = NewNormalizer(o.reportPartialData)

	for _, opt := range opts {
		opt(o)
	}
	o.lastUsed = o.now()
	return o
}

func (o *Orchestrator) Dashboard() models.Dashboard {
	return o.recipe.Dashboard()
}

// Build produces a view for a single request without touching session state.
func (o *Orchestrator) Build(ctx context.Context, filters models.Filters) *models.ViewModel {
	started := time.Now()
	view := o.build(ctx, filters, 0, func(OrchestratorState) {})
	o.audit.LogViewServed(ctx, view, time.Since(started))
	return view
}

// Refresh starts a new trigger, cancelling any in-flight one. The returned
// bool is false when a newer trigger was issued before this one settled; its
// view is then not stored.
func (o *Orchestrator) Refresh(ctx context.Context, filters models.Filters) (*models.ViewModel, bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	started := time.Now()

	o.mu.Lock()
	o.issued++
	seq := o.issued
	if o.cancel != nil {
		o.cancel()
	}
	o.cancel = cancel
	o.state = StateIdle
	o.lastUsed = o.now()
	o.mu.Unlock()

	view := o.build(ctx, filters, seq, func(state OrchestratorState) {
		o.mu.Lock()
		defer o.mu.Unlock()
		if seq == o.issued {
			o.state = state
		}
	})

	o.mu.Lock()
	defer o.mu.Unlock()

	if seq != o.issued {
		o.audit.LogRefreshSuperseded(ctx, o.recipe.Dashboard(), seq, o.issued)
		o.metrics.IncrementCounter("analytics.refresh.superseded", map[string]string{
			"dashboard": string(o.recipe.Dashboard()),
		})
		return view, false
	}

	o.current = view
	o.lastError = view.LastError
	o.cancel = nil
	close(o.applied)
	o.applied = make(chan struct{})
	o.audit.LogViewServed(ctx, view, time.Since(started))
	return view, true
}

// Current returns the latest applied view, or nil before the first refresh.
func (o *Orchestrator) Current() *models.ViewModel {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// AwaitNewer blocks until a view newer than sequence has been stored and
// returns it. Superseded callers use it to answer with the winning view.
func (o *Orchestrator) AwaitNewer(ctx context.Context, sequence uint64) (*models.ViewModel, error) {
	for {
		o.mu.Lock()
		current, applied := o.current, o.applied
		o.mu.Unlock()

		if current != nil && current.Sequence > sequence {
			return current, nil
		}

		select {
		case <-applied:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// LastError is set only when an authenticated caller's live fetch failed.
func (o *Orchestrator) LastError() *string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastError == nil {
		return nil
	}
	msg := *o.lastError
	return &msg
}

func (o *Orchestrator) State() OrchestratorState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) idleSince() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastUsed
}

func (o *Orchestrator) build(ctx context.Context, filters models.Filters, seq uint64, track func(OrchestratorState)) *models.ViewModel {
	started := time.Now()
	filters = filters.WithDefaults()
	dashboard := o.recipe.Dashboard()

	track(StateFetchingLive)

	if err := o.authorize(filters); err != nil {
		track(StateFailedAuth)
		reason := models.FallbackReasonUnauthorized
		if errors.Is(err, ErrUnauthenticated) {
			reason = models.FallbackReasonUnauthenticated
			slog.Debug("serving demo analytics to unauthenticated caller", "dashboard", dashboard)
		} else {
			slog.Warn("analytics role check failed",
				"dashboard", dashboard,
				"role", filters.Role,
				"error", err)
		}
		return o.fallback(filters, seq, reason, nil, started, track)
	}

	payloads, err := o.fetchAll(ctx, filters)
	if err == nil {
		track(StateSucceeded)
		track(StateAssembling)

		view := o.newView(filters, seq, models.DataOriginLive)
		if err = o.recipe.Assemble(o.normalizer, payloads, view); err == nil {
			finalizeView(view)
			track(StateReady)
			o.recordBuild(view, started)
			slog.Info("analytics view assembled",
				"dashboard", dashboard,
				"period", filters.Period,
				"sequence", seq,
				"category_count", len(view.Categories),
				"total_visitors", view.Summary.TotalVisitors)
			return view
		}
		err = &UpstreamError{Source: "normalizer", Err: err}
	}

	track(StateFailedUpstream)
	if ctx.Err() != nil {
		slog.Debug("analytics fetch cancelled",
			"dashboard", dashboard,
			"sequence", seq,
			"error", err)
	} else {
		slog.Warn("live analytics unavailable, serving fallback",
			"dashboard", dashboard,
			"period", filters.Period,
			"error", err)
	}

	msg := fmt.Sprintf("Live analytics unavailable: %v", err)
	return o.fallback(filters, seq, models.FallbackReasonUpstream, &msg, started, track)
}

// authorize runs before any network call.
func (o *Orchestrator) authorize(filters models.Filters) error {
	if !filters.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if !roleAllowed(o.recipe, filters.Role) {
		return &AuthorizationError{
			Dashboard: o.recipe.Dashboard(),
			Role:      filters.Role,
			Allowed:   o.recipe.AllowedRoles(),
		}
	}
	return nil
}

// fetchAll issues every call concurrently and waits for all of them. Any
// rejection or success:false envelope fails the whole fetch; remaining calls
// see a cancelled context.
func (o *Orchestrator) fetchAll(ctx context.Context, filters models.Filters) (map[string]json.RawMessage, error) {
	calls := o.recipe.Calls()
	results := make([]json.RawMessage, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			callStarted := time.Now()
			envelope, err := call.Fetch(gctx, o.source, filters)
			o.metrics.RecordProcessingTime("analytics.upstream.call", time.Since(callStarted))

			status := "success"
			defer func() {
				o.metrics.IncrementCounter("analytics.upstream.call", map[string]string{
					"source": call.Source,
					"status": status,
				})
			}()

			if err != nil {
				status = "error"
				return &UpstreamError{Source: call.Source, Err: err}
			}
			if envelope == nil || !envelope.Success {
				status = "unsuccessful"
				message := "source reported failure"
				if envelope != nil && envelope.Message != "" {
					message = envelope.Message
				}
				return &UpstreamError{Source: call.Source, Message: message}
			}

			results[i] = envelope.Data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	payloads := make(map[string]json.RawMessage, len(calls))
	for i, call := range calls {
		payloads[call.Source] = results[i]
	}
	return payloads, nil
}

func (o *Orchestrator) fallback(
	filters models.Filters,
	seq uint64,
	reason models.FallbackReason,
	lastError *string,
	started time.Time,
	track func(OrchestratorState),
) *models.ViewModel {
	track(StateSynthesizing)

	view := o.synthesizer.Synthesize(o.recipe, filters)
	view.FallbackReason = reason
	view.LastError = lastError
	view.Sequence = seq
	view.GeneratedAt = o.now()

	track(StateReady)
	o.recordBuild(view, started)
	o.metrics.IncrementCounter("analytics.fallback", map[string]string{
		"dashboard": string(view.Dashboard),
		"reason":    string(reason),
	})
	return view
}

func (o *Orchestrator) newView(filters models.Filters, seq uint64, origin models.DataOrigin) *models.ViewModel {
	return &models.ViewModel{
		Dashboard:   o.recipe.Dashboard(),
		Filters:     filters,
		DataOrigin:  origin,
		Sequence:    seq,
		GeneratedAt: o.now(),
	}
}

func (o *Orchestrator) recordBuild(view *models.ViewModel, started time.Time) {
	o.metrics.RecordProcessingTime("analytics.view.build", time.Since(started))
	o.metrics.IncrementCounter("analytics.view.built", map[string]string{
		"dashboard": string(view.Dashboard),
		"origin":    string(view.DataOrigin),
	})
}

func (o *Orchestrator) reportPartialData(err *PartialDataError) {
	slog.Debug("normalizer applied default",
		"dashboard", o.recipe.Dashboard(),
		"entity", err.Entity,
		"field", err.Field,
		"aliases", err.Aliases)
	o.metrics.IncrementCounter("analytics.partial_data", map[string]string{
		"entity": err.Entity,
		"field":  err.Field,
	})
}
