package scoring

import (
	"fmt"
	"sort"

	"github.com/adaptivekit/cost-router/internal/profile"
	"github.com/adaptivekit/cost-router/internal/types"
)

// Weights are the dimension coefficients of one scoring profile. Each set
// must sum to 1.0 (validated at config load).
type Weights struct {
	Cost        float64 `yaml:"cost"`
	Speed       float64 `yaml:"speed"`
	Quality     float64 `yaml:"quality"`
	Reliability float64 `yaml:"reliability"`
}

// Sum returns the coefficient total, used by config validation.
func (w Weights) Sum() float64 {
	return w.Cost + w.Speed + w.Quality + w.Reliability
}

// ScorerConfig holds the scoring reference ceilings and weight sets.
type ScorerConfig struct {
	// CostCeiling is the estimated cost (USD) at which costScore reaches 0.
	CostCeiling float64
	// LatencyCeilingMs is the average latency at which speedScore reaches 0.
	LatencyCeilingMs float64
	// DefaultMaxOutputTokens is assumed when the request does not cap output.
	DefaultMaxOutputTokens int
	DefaultWeights         Weights
	QualityWeights         Weights
}

// Scorer produces a ranked candidate list for one request from the current
// provider profiles.
type Scorer struct {
	cfg      ScorerConfig
	profiles *profile.Store
}

// NewScorer creates a candidate scorer over the given profile store.
func NewScorer(cfg ScorerConfig, profiles *profile.Store) *Scorer {
	return &Scorer{cfg: cfg, profiles: profiles}
}

// WeightsFor returns the weight set implied by the request's complexity and
// priority: quality-first for complex or high-priority work, cost-first
// otherwise.
func (s *Scorer) WeightsFor(req *types.RoutingRequest) Weights {
	if req.WantsQuality() {
		return s.cfg.QualityWeights
	}
	return s.cfg.DefaultWeights
}

// Score evaluates every provider against the request and returns candidates
// sorted descending by total score. Constraint-failing candidates are kept
// (annotated with a reason) so selection errors can cite them.
func (s *Scorer) Score(req *types.RoutingRequest) []types.CandidateScore {
	weights := s.WeightsFor(req)
	inputTokens := EstimateInputTokens(req.Prompt)
	outputTokens := s.cfg.DefaultMaxOutputTokens
	if req.MaxTokens != nil {
		outputTokens = *req.MaxTokens
	}

	candidates := make([]types.CandidateScore, 0)
	for _, p := range s.profiles.Snapshot() {
		estCost := s.estimateCost(&p, inputTokens, outputTokens)

		breakdown := types.ScoreBreakdown{
			Cost:        linearScore(estCost, s.cfg.CostCeiling),
			Speed:       linearScore(p.AvgLatencyMs, s.cfg.LatencyCeilingMs),
			Quality:     p.QualityScore,
			Reliability: p.ReliabilityScore,
		}

		candidate := types.CandidateScore{
			ProviderID: p.ID,
			TotalScore: breakdown.Cost*weights.Cost +
				breakdown.Speed*weights.Speed +
				breakdown.Quality*weights.Quality +
				breakdown.Reliability*weights.Reliability,
			Breakdown:             breakdown,
			EstimatedCost:         estCost,
			EstimatedLatencyMs:    p.AvgLatencyMs,
			EstimatedInputTokens:  inputTokens,
			EstimatedOutputTokens: outputTokens,
			MeetsConstraints:      true,
		}

		candidate.MeetsConstraints, candidate.RejectionReason = checkConstraints(req.Constraints, &p, estCost)
		candidates = append(candidates, candidate)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].TotalScore > candidates[j].TotalScore
	})

	return candidates
}

// estimateCost prices the estimated token counts at the provider's
// per-million rates, treating usage under an unexhausted free-tier quota as
// zero cost.
func (s *Scorer) estimateCost(p *profile.Profile, inputTokens, outputTokens int) float64 {
	if p.FreeTierDailyQuota > 0 && s.profiles.FreeTierRemaining(p.ID) > 0 {
		return 0
	}

	inputCost := float64(inputTokens) / 1_000_000 * p.CostPerMInputTokens
	outputCost := float64(outputTokens) / 1_000_000 * p.CostPerMOutputTokens
	return inputCost + outputCost
}

func checkConstraints(c *types.Constraints, p *profile.Profile, estCost float64) (bool, string) {
	if c == nil {
		return true, ""
	}

	if c.MaxCost != nil && estCost > *c.MaxCost {
		return false, fmt.Sprintf("estimated cost $%.6f exceeds max cost $%.6f", estCost, *c.MaxCost)
	}
	if c.MaxLatencyMs != nil && p.AvgLatencyMs > *c.MaxLatencyMs {
		return false, fmt.Sprintf("average latency %.0fms exceeds max latency %.0fms", p.AvgLatencyMs, *c.MaxLatencyMs)
	}
	if c.MinQualityScore != nil && p.QualityScore < *c.MinQualityScore {
		return false, fmt.Sprintf("quality score %.0f below minimum %.0f", p.QualityScore, *c.MinQualityScore)
	}

	return true, ""
}

// linearScore maps value onto 0-100, decreasing linearly toward the ceiling
// and floored at 0.
func linearScore(value, ceiling float64) float64 {
	if ceiling <= 0 {
		return 0
	}
	score := 100 * (1 - value/ceiling)
	if score < 0 {
		return 0
	}
	return score
}

// EstimateInputTokens deterministically approximates the token count of a
// prompt at four characters per token.
func EstimateInputTokens(prompt string) int {
	tokens := len(prompt) / 4
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
