package routing

import (
	"context"
	"fmt"

	"github.com/adaptivekit/cost-router/internal/providers"
	"github.com/adaptivekit/cost-router/internal/types"
)

// execute dispatches the request to one provider adapter, measures wall-clock
// latency around the call and prices the returned token counts. The call is
// bounded by the configured per-call timeout; no shared lock is held while it
// is in flight.
func (r *Router) execute(ctx context.Context, providerID string, req *types.RoutingRequest, freeTier bool) (*types.Completion, float64, float64, error) {
	adapter, ok := r.adapters[providerID]
	if !ok {
		return nil, 0, 0, providers.NewCallError(providerID, providers.FailureProviderError,
			fmt.Errorf("no adapter registered for provider %s", providerID))
	}

	maxTokens := r.opts.DefaultMaxOutputTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	temperature := r.opts.DefaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	callCtx, cancel := context.WithTimeout(ctx, r.opts.RequestTimeout)
	defer cancel()

	start := r.now()
	completion, err := adapter.Complete(callCtx, req.Prompt, maxTokens, temperature)
	latencyMs := float64(r.now().Sub(start).Milliseconds())

	if err != nil {
		return nil, 0, latencyMs, err
	}

	return completion, r.actualCost(providerID, completion, freeTier), latencyMs, nil
}

// actualCost prices the observed token counts at the provider's per-million
// rates. Calls covered by a consumed free-tier unit cost nothing.
func (r *Router) actualCost(providerID string, c *types.Completion, freeTier bool) float64 {
	if freeTier {
		return 0
	}

	p, ok := r.profiles.Get(providerID)
	if !ok {
		return 0
	}

	inputCost := float64(c.InputTokens) / 1_000_000 * p.CostPerMInputTokens
	outputCost := float64(c.OutputTokens) / 1_000_000 * p.CostPerMOutputTokens
	return inputCost + outputCost
}
