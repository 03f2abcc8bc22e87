package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adaptivekit/cost-router/internal/budget"
	"github.com/adaptivekit/cost-router/internal/profile"
	"github.com/adaptivekit/cost-router/internal/providers"
	"github.com/adaptivekit/cost-router/internal/scoring"
	"github.com/adaptivekit/cost-router/internal/telemetry"
	"github.com/adaptivekit/cost-router/internal/types"
)

// Options carries the execution knobs the router applies to every call.
type Options struct {
	// RequestTimeout bounds each individual provider call.
	RequestTimeout time.Duration
	// DefaultMaxOutputTokens applies when the request does not cap output.
	DefaultMaxOutputTokens int
	// DefaultTemperature applies when the request does not set one.
	DefaultTemperature float32
}

// Router orchestrates one completion end to end: budget check, scoring,
// selection, execution, at most one fallback, and the bookkeeping that feeds
// future routing decisions.
type Router struct {
	adapters map[string]providers.Adapter
	profiles *profile.Store
	scorer   *scoring.Scorer
	policy   *scoring.Policy
	guard    *budget.Guard
	ledger   budget.Ledger
	recorder *telemetry.Recorder
	opts     Options
	now      func() time.Time
	logger   *logrus.Logger
}

// NewRouter wires the routing pipeline together. Adapters are registered
// separately, before the router starts serving requests.
func NewRouter(
	profiles *profile.Store,
	scorer *scoring.Scorer,
	policy *scoring.Policy,
	guard *budget.Guard,
	ledger budget.Ledger,
	recorder *telemetry.Recorder,
	opts Options,
	now func() time.Time,
	logger *logrus.Logger,
) *Router {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.DefaultMaxOutputTokens <= 0 {
		opts.DefaultMaxOutputTokens = 1024
	}
	if opts.DefaultTemperature <= 0 {
		opts.DefaultTemperature = 0.7
	}
	if now == nil {
		now = time.Now
	}
	return &Router{
		adapters: make(map[string]providers.Adapter),
		profiles: profiles,
		scorer:   scorer,
		policy:   policy,
		guard:    guard,
		ledger:   ledger,
		recorder: recorder,
		opts:     opts,
		now:      now,
		logger:   logger,
	}
}

// RegisterAdapter makes a provider callable. Registration must finish before
// the first Route call; the adapter map is not guarded afterwards.
func (r *Router) RegisterAdapter(a providers.Adapter) {
	r.adapters[a.Name()] = a
}

// Route runs the full pipeline for one request and returns either a completed
// result or one of the taxonomy errors (BudgetExceededError, NoCandidateError,
// AllProvidersFailedError).
func (r *Router) Route(ctx context.Context, req *types.RoutingRequest) (*types.RouteResult, error) {
	if req.ID == "" {
		req.ID = fmt.Sprintf("req_%d", r.now().UnixNano())
	}

	r.profiles.ResetIfNewDay()

	status, err := r.guard.Check(ctx)
	if err != nil {
		return nil, fmt.Errorf("budget check failed: %w", err)
	}
	if !status.CanProceed {
		r.logger.WithFields(logrus.Fields{
			"request_id":   req.ID,
			"percent_used": status.PercentUsed,
		}).Warn("Request rejected by budget guard")
		return nil, &BudgetExceededError{Status: status}
	}

	candidates := r.scorer.Score(req)

	primary, err := r.policy.Select(req, candidates, nil)
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"provider":   primary.ProviderID,
		"reason":     primary.Reason,
	}).Info("Provider selected")

	completion, cost, latencyMs, execErr := r.execute(ctx, primary.ProviderID, req, primary.FreeTierUsed)
	if execErr == nil {
		return r.finish(ctx, req, primary, completion, cost, latencyMs, false)
	}

	r.recordFailure(req, primary.ProviderID, latencyMs, execErr, false)

	// A caller-initiated cancellation ends the request here; retrying a
	// fallback the caller no longer wants would waste a paid call.
	if ctx.Err() != nil {
		return nil, execErr
	}

	exclude := map[string]bool{primary.ProviderID: true}
	fallback, selErr := r.policy.Select(req, candidates, exclude)
	if selErr != nil {
		return nil, &AllProvidersFailedError{
			PrimaryProvider: primary.ProviderID,
			PrimaryErr:      execErr,
			FallbackErr:     selErr,
		}
	}

	r.logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"provider":   fallback.ProviderID,
		"after":      primary.ProviderID,
	}).Warn("Falling back after primary failure")

	completion, cost, latencyMs, fbErr := r.execute(ctx, fallback.ProviderID, req, fallback.FreeTierUsed)
	if fbErr != nil {
		r.recordFailure(req, fallback.ProviderID, latencyMs, fbErr, true)
		return nil, &AllProvidersFailedError{
			PrimaryProvider:  primary.ProviderID,
			FallbackProvider: fallback.ProviderID,
			PrimaryErr:       execErr,
			FallbackErr:      fbErr,
		}
	}

	fallback.Reason = fmt.Sprintf("fallback after %s failed: %s", primary.ProviderID, fallback.Reason)
	return r.finish(ctx, req, fallback, completion, cost, latencyMs, true)
}

// finish performs the success-path bookkeeping: spend tracking, profile
// metrics, telemetry, and the at-most-once budget alert.
func (r *Router) finish(ctx context.Context, req *types.RoutingRequest, sel scoring.Selection, c *types.Completion, cost, latencyMs float64, fallbackUsed bool) (*types.RouteResult, error) {
	if err := r.ledger.TrackRequest(ctx, budget.Record{
		RequestID: req.ID,
		Provider:  sel.ProviderID,
		Cost:      cost,
		Timestamp: r.now(),
	}); err != nil {
		r.logger.WithError(err).Error("Failed to track request spend")
	}

	r.profiles.RecordOutcome(sel.ProviderID, latencyMs, true)

	r.recorder.Record(telemetry.Entry{
		Timestamp:    r.now(),
		RequestID:    req.ID,
		Provider:     sel.ProviderID,
		Complexity:   req.Complexity,
		InputTokens:  c.InputTokens,
		OutputTokens: c.OutputTokens,
		Cost:         cost,
		LatencyMs:    latencyMs,
		Success:      true,
		FallbackUsed: fallbackUsed,
	})

	r.guard.MaybeAlert(ctx)

	r.logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"provider":   sel.ProviderID,
		"cost":       cost,
		"latency_ms": latencyMs,
		"fallback":   fallbackUsed,
	}).Info("Request completed")

	return &types.RouteResult{
		RequestID:    req.ID,
		Provider:     sel.ProviderID,
		Content:      c.Content,
		InputTokens:  c.InputTokens,
		OutputTokens: c.OutputTokens,
		ActualCost:   cost,
		LatencyMs:    latencyMs,
		FallbackUsed: fallbackUsed,
		Reasoning:    []string{sel.Reason},
	}, nil
}

// recordFailure performs the failure-path bookkeeping for one attempt. Failed
// calls cost nothing, so only metrics and telemetry move.
func (r *Router) recordFailure(req *types.RoutingRequest, providerID string, latencyMs float64, err error, fallbackAttempt bool) {
	r.profiles.RecordOutcome(providerID, latencyMs, false)

	kind := providers.KindOf(err)
	r.recorder.Record(telemetry.Entry{
		Timestamp:    r.now(),
		RequestID:    req.ID,
		Provider:     providerID,
		Complexity:   req.Complexity,
		LatencyMs:    latencyMs,
		Success:      false,
		ErrorKind:    string(kind),
		FallbackUsed: fallbackAttempt,
		RateLimited:  kind == providers.FailureRateLimited,
	})

	r.logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"provider":   providerID,
		"error_kind": kind,
	}).WithError(err).Warn("Provider call failed")
}
