package scoring

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/adaptivekit/cost-router/internal/profile"
	"github.com/adaptivekit/cost-router/internal/types"
)

// NoCandidateError is returned when every candidate fails a hard constraint
// (or every valid candidate is excluded). It carries the rejection reason of
// the best-ranked rejected candidate for error reporting.
type NoCandidateError struct {
	Reason   string
	Rejected int
}

func (e *NoCandidateError) Error() string {
	if e.Reason == "" {
		return "no provider satisfies constraints"
	}
	return fmt.Sprintf("no provider satisfies constraints: %s", e.Reason)
}

// Selection is the outcome of one policy pass.
type Selection struct {
	ProviderID   string
	Reason       string
	FreeTierUsed bool
}

// Policy applies the override rules on top of the ranked candidate list.
// Precedence is fixed: constraint filtering first, then the complexity
// (flagship) override, then the free-tier override, then generic ranking.
type Policy struct {
	profiles   *profile.Store
	flagshipID string
	freeTierID string
	logger     *logrus.Logger
}

// NewPolicy creates a selection policy. flagshipID and freeTierID may be
// empty when no provider is designated for the respective override.
func NewPolicy(profiles *profile.Store, flagshipID, freeTierID string, logger *logrus.Logger) *Policy {
	return &Policy{
		profiles:   profiles,
		flagshipID: flagshipID,
		freeTierID: freeTierID,
		logger:     logger,
	}
}

// Select picks one provider from the scored candidate list. exclude holds
// provider ids that already failed during this call; Select never returns one
// of them, which is what keeps fallback from re-selecting a failed provider.
func (p *Policy) Select(req *types.RoutingRequest, candidates []types.CandidateScore, exclude map[string]bool) (Selection, error) {
	valid := make([]types.CandidateScore, 0, len(candidates))
	var bestRejected *types.CandidateScore

	for i := range candidates {
		c := &candidates[i]
		if exclude[c.ProviderID] {
			continue
		}
		if !c.MeetsConstraints {
			if bestRejected == nil {
				bestRejected = c
			}
			continue
		}
		valid = append(valid, *c)
	}

	if len(valid) == 0 {
		err := &NoCandidateError{Rejected: len(candidates)}
		if bestRejected != nil {
			err.Reason = fmt.Sprintf("%s: %s", bestRejected.ProviderID, bestRejected.RejectionReason)
		}
		return Selection{}, err
	}

	// Quality override: complex tasks go to the flagship when it survived
	// constraint filtering, regardless of its total score.
	if req.Complexity == types.ComplexityComplex && p.flagshipID != "" {
		for _, c := range valid {
			if c.ProviderID == p.flagshipID {
				p.logger.WithField("provider", c.ProviderID).Debug("Flagship override applied")
				return Selection{
					ProviderID: c.ProviderID,
					Reason:     fmt.Sprintf("complex task routed to flagship provider %s", c.ProviderID),
				}, nil
			}
		}
	}

	// Cost override: a valid free-tier provider with quota remaining wins.
	// Consuming the quota here is what charges this call against the daily
	// counter.
	if p.freeTierID != "" {
		for _, c := range valid {
			if c.ProviderID == p.freeTierID && p.profiles.ConsumeFreeTier(c.ProviderID) {
				p.logger.WithField("provider", c.ProviderID).Debug("Free-tier override applied")
				return Selection{
					ProviderID:   c.ProviderID,
					Reason:       fmt.Sprintf("free-tier quota available on %s", c.ProviderID),
					FreeTierUsed: true,
				}, nil
			}
		}
	}

	top := valid[0]
	return Selection{
		ProviderID: top.ProviderID,
		Reason:     fmt.Sprintf("highest score %.1f on %s", top.TotalScore, top.ProviderID),
	}, nil
}
