package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Record is one executed request as reported to the cost ledger.
type Record struct {
	RequestID    string    `json:"request_id"`
	Provider     string    `json:"provider"`
	Cost         float64   `json:"cost"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Timestamp    time.Time `json:"timestamp"`
}

// DailyCost is the ledger's view of today's spend.
type DailyCost struct {
	TotalCost  float64            `json:"total_cost"`
	ByProvider map[string]float64 `json:"by_provider"`
}

// Ledger is the external cost-ledger collaborator. Persistence is out of
// scope for the router; see MemoryLedger for the in-process reference.
type Ledger interface {
	TrackRequest(ctx context.Context, rec Record) error
	GetDailyCost(ctx context.Context) (DailyCost, error)
}

// Limits are the configured budget limits.
type Limits struct {
	DailyLimit     float64 `yaml:"daily_limit"`
	MonthlyLimit   float64 `yaml:"monthly_limit"`
	AlertThreshold float64 `yaml:"alert_threshold"`
	HardStop       bool    `yaml:"hard_stop"`
}

// Status is the derived budget state for one check.
type Status struct {
	CanProceed  bool    `json:"can_proceed"`
	ShouldAlert bool    `json:"should_alert"`
	Remaining   float64 `json:"remaining"`
	PercentUsed float64 `json:"percent_used"`
	Limit       float64 `json:"limit"`
	Reason      string  `json:"reason,omitempty"`
}

// Alert is the outbound budget-alert signal. Delivery and retry belong to the
// external notification collaborator.
type Alert struct {
	PercentUsed float64 `json:"percent_used"`
	Remaining   float64 `json:"remaining"`
	Limit       float64 `json:"limit"`
}

// AlertFunc receives budget alerts.
type AlertFunc func(Alert)

// Guard decides whether a request may proceed under the configured limits and
// whether the alert threshold has been crossed.
type Guard struct {
	ledger Ledger
	limits Limits
	alert  AlertFunc
	logger *logrus.Logger
	now    func() time.Time

	mu        sync.Mutex
	alertedOn string // calendar day the alert already fired, "2006-01-02"
}

// NewGuard creates a budget guard. alert may be nil when no notification
// collaborator is wired.
func NewGuard(ledger Ledger, limits Limits, alert AlertFunc, now func() time.Time, logger *logrus.Logger) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{
		ledger: ledger,
		limits: limits,
		alert:  alert,
		logger: logger,
		now:    now,
	}
}

// Check reads the ledger and derives the current budget status. Called once
// before candidate selection and once after execution.
func (g *Guard) Check(ctx context.Context) (Status, error) {
	daily, err := g.ledger.GetDailyCost(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to read cost ledger: %w", err)
	}

	status := Status{
		Limit:     g.limits.DailyLimit,
		Remaining: g.limits.DailyLimit - daily.TotalCost,
	}

	if g.limits.DailyLimit > 0 {
		status.PercentUsed = daily.TotalCost / g.limits.DailyLimit
	}
	status.ShouldAlert = status.PercentUsed >= g.limits.AlertThreshold

	if g.limits.HardStop {
		status.CanProceed = status.Remaining > 0
		if !status.CanProceed {
			status.Reason = fmt.Sprintf("daily budget of $%.2f exhausted (spent $%.4f)",
				g.limits.DailyLimit, daily.TotalCost)
		}
	} else {
		status.CanProceed = true
	}

	return status, nil
}

// MaybeAlert re-checks the budget after an execution and raises the outbound
// alert signal the first time the threshold is crossed on a given day.
func (g *Guard) MaybeAlert(ctx context.Context) {
	status, err := g.Check(ctx)
	if err != nil {
		g.logger.WithError(err).Warn("Budget alert check failed")
		return
	}

	if !status.ShouldAlert {
		return
	}

	today := g.now().Format("2006-01-02")

	g.mu.Lock()
	alreadyAlerted := g.alertedOn == today
	if !alreadyAlerted {
		g.alertedOn = today
	}
	g.mu.Unlock()

	if alreadyAlerted {
		return
	}

	g.logger.WithFields(logrus.Fields{
		"percent_used": status.PercentUsed,
		"remaining":    status.Remaining,
		"limit":        status.Limit,
	}).Warn("Budget alert threshold crossed")

	if g.alert != nil {
		g.alert(Alert{
			PercentUsed: status.PercentUsed,
			Remaining:   status.Remaining,
			Limit:       status.Limit,
		})
	}
}
