package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adaptivekit/cost-router/internal/profile"
	"github.com/adaptivekit/cost-router/internal/types"
)

func rankedCandidates() []types.CandidateScore {
	return []types.CandidateScore{
		{ProviderID: "cheap", TotalScore: 95, MeetsConstraints: true},
		{ProviderID: "premium", TotalScore: 90, MeetsConstraints: true},
		{ProviderID: "free", TotalScore: 85, MeetsConstraints: true},
	}
}

func TestSelectHighestScore(t *testing.T) {
	policy := NewPolicy(testStore(), "", "", testLogger())

	sel, err := policy.Select(&types.RoutingRequest{Prompt: "hi"}, rankedCandidates(), nil)
	require.NoError(t, err)
	assert.Equal(t, "cheap", sel.ProviderID)
	assert.False(t, sel.FreeTierUsed)
	assert.Contains(t, sel.Reason, "highest score")
}

func TestSelectFlagshipOverrideForComplex(t *testing.T) {
	policy := NewPolicy(testStore(), "premium", "", testLogger())

	// The flagship wins for complex tasks even when outranked.
	sel, err := policy.Select(&types.RoutingRequest{
		Prompt:     "hi",
		Complexity: types.ComplexityComplex,
	}, rankedCandidates(), nil)
	require.NoError(t, err)
	assert.Equal(t, "premium", sel.ProviderID)
	assert.Contains(t, sel.Reason, "flagship")

	// Simple tasks are unaffected by the flagship designation.
	sel, err = policy.Select(&types.RoutingRequest{
		Prompt:     "hi",
		Complexity: types.ComplexitySimple,
	}, rankedCandidates(), nil)
	require.NoError(t, err)
	assert.Equal(t, "cheap", sel.ProviderID)
}

func TestSelectFlagshipMustMeetConstraints(t *testing.T) {
	policy := NewPolicy(testStore(), "premium", "", testLogger())

	candidates := rankedCandidates()
	candidates[1].MeetsConstraints = false
	candidates[1].RejectionReason = "average latency 2000ms exceeds max latency 800ms"

	sel, err := policy.Select(&types.RoutingRequest{
		Prompt:     "hi",
		Complexity: types.ComplexityComplex,
	}, candidates, nil)
	require.NoError(t, err)
	assert.Equal(t, "cheap", sel.ProviderID)
}

func TestSelectFreeTierOverride(t *testing.T) {
	store := testStore() // "free" has a daily quota of 2
	policy := NewPolicy(store, "", "free", testLogger())

	req := &types.RoutingRequest{Prompt: "hi"}

	sel, err := policy.Select(req, rankedCandidates(), nil)
	require.NoError(t, err)
	assert.Equal(t, "free", sel.ProviderID)
	assert.True(t, sel.FreeTierUsed)
	assert.Equal(t, 1, store.FreeTierUsage("free"))

	sel, err = policy.Select(req, rankedCandidates(), nil)
	require.NoError(t, err)
	assert.Equal(t, "free", sel.ProviderID)
	assert.Equal(t, 2, store.FreeTierUsage("free"))

	// Quota exhausted: generic ranking takes over.
	sel, err = policy.Select(req, rankedCandidates(), nil)
	require.NoError(t, err)
	assert.Equal(t, "cheap", sel.ProviderID)
	assert.False(t, sel.FreeTierUsed)
	assert.Equal(t, 2, store.FreeTierUsage("free"))
}

func TestSelectFlagshipBeatsFreeTier(t *testing.T) {
	store := testStore()
	policy := NewPolicy(store, "premium", "free", testLogger())

	sel, err := policy.Select(&types.RoutingRequest{
		Prompt:     "hi",
		Complexity: types.ComplexityComplex,
	}, rankedCandidates(), nil)
	require.NoError(t, err)
	assert.Equal(t, "premium", sel.ProviderID)
	assert.Zero(t, store.FreeTierUsage("free"))
}

func TestSelectExclusion(t *testing.T) {
	policy := NewPolicy(testStore(), "", "", testLogger())

	sel, err := policy.Select(&types.RoutingRequest{Prompt: "hi"}, rankedCandidates(),
		map[string]bool{"cheap": true})
	require.NoError(t, err)
	assert.Equal(t, "premium", sel.ProviderID)

	_, err = policy.Select(&types.RoutingRequest{Prompt: "hi"}, rankedCandidates(),
		map[string]bool{"cheap": true, "premium": true, "free": true})
	var noCandidate *NoCandidateError
	require.ErrorAs(t, err, &noCandidate)
}

func TestSelectNoCandidateCitesBestRejected(t *testing.T) {
	policy := NewPolicy(testStore(), "", "", testLogger())

	candidates := []types.CandidateScore{
		{ProviderID: "cheap", TotalScore: 95, MeetsConstraints: false,
			RejectionReason: "estimated cost $0.000300 exceeds max cost $0.000100"},
		{ProviderID: "premium", TotalScore: 90, MeetsConstraints: false,
			RejectionReason: "estimated cost $0.004000 exceeds max cost $0.000100"},
	}

	_, err := policy.Select(&types.RoutingRequest{Prompt: "hi"}, candidates, nil)
	var noCandidate *NoCandidateError
	require.ErrorAs(t, err, &noCandidate)
	assert.Equal(t, 2, noCandidate.Rejected)
	assert.Contains(t, noCandidate.Reason, "cheap")
	assert.Contains(t, err.Error(), "exceeds max cost")
}

func TestSelectEmptyCandidateList(t *testing.T) {
	policy := NewPolicy(testStore(), "", "", testLogger())

	_, err := policy.Select(&types.RoutingRequest{Prompt: "hi"}, nil, nil)
	var noCandidate *NoCandidateError
	require.ErrorAs(t, err, &noCandidate)
}

func TestSelectWithScoredCandidates(t *testing.T) {
	store := profile.NewStore([]profile.Profile{
		{
			ID:                   "cheap",
			CostPerMInputTokens:  1.0,
			CostPerMOutputTokens: 2.0,
			AvgLatencyMs:         1000,
			QualityScore:         80,
			ReliabilityScore:     90,
		},
		{
			ID:                   "premium",
			CostPerMInputTokens:  10.0,
			CostPerMOutputTokens: 30.0,
			AvgLatencyMs:         2000,
			QualityScore:         95,
			ReliabilityScore:     95,
		},
	}, 0.2, nil, testLogger())

	scorer := NewScorer(testScorerConfig(), store)
	policy := NewPolicy(store, "premium", "", testLogger())

	req := &types.RoutingRequest{Prompt: prompt400, Complexity: types.ComplexityComplex}
	sel, err := policy.Select(req, scorer.Score(req), nil)
	require.NoError(t, err)
	assert.Equal(t, "premium", sel.ProviderID)
}
