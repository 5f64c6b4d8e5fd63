package policy

import (
	"errors"
	"fmt"

	"github.com/aretw0/freelingo/pkg/domain"
)

// ErrInvalidBudget is returned when Budgets cannot bound a run.
var ErrInvalidBudget = errors.New("invalid retry budget")

const (
	// DefaultStageRetries is the retry budget of each retryable stage.
	DefaultStageRetries = 2
	// DefaultMaxRefereeVisits is the global referee-visit budget.
	DefaultMaxRefereeVisits = 5
)

// Budgets configures the circuit breaker.
type Budgets struct {
	// PerStage maps FEEDBACK, PLANNER and WORDS to their retry budget.
	// Missing stages get a budget of zero.
	PerStage map[domain.Stage]int `json:"per_stage"`
	// MaxRefereeVisits caps referee entries per run.
	MaxRefereeVisits int `json:"max_referee_visits"`
}

// DefaultBudgets returns two retries per stage and five referee visits.
func DefaultBudgets() Budgets {
	return UniformBudgets(DefaultStageRetries, DefaultMaxRefereeVisits)
}

// UniformBudgets gives every retryable stage the same budget.
func UniformBudgets(perStage, maxRefereeVisits int) Budgets {
	b := Budgets{PerStage: make(map[domain.Stage]int, len(domain.RetryableStages)), MaxRefereeVisits: maxRefereeVisits}
	for _, s := range domain.RetryableStages {
		b.PerStage[s] = perStage
	}
	return b
}

// Validate rejects negative budgets, unknown stages and a zero referee budget.
func (b Budgets) Validate() error {
	if b.MaxRefereeVisits < 1 {
		return fmt.Errorf("%w: max referee visits must be at least 1, got %d", ErrInvalidBudget, b.MaxRefereeVisits)
	}
	for s, n := range b.PerStage {
		if !s.IsRetryable() {
			return fmt.Errorf("%w: stage %q cannot be retried", ErrInvalidBudget, s)
		}
		if n < 0 {
			return fmt.Errorf("%w: stage %s budget is negative (%d)", ErrInvalidBudget, s, n)
		}
	}
	return nil
}

// StageBudget returns the retry budget of stage s.
func (b Budgets) StageBudget(s domain.Stage) int {
	return b.PerStage[s]
}

// Ceiling is the maximum number of stage invocations a run may perform:
// the straight-line pass plus every per-stage retry plus the referee budget.
func (b Budgets) Ceiling() int {
	total := len(domain.ChainOrder) + b.MaxRefereeVisits
	for _, s := range domain.RetryableStages {
		total += b.PerStage[s]
	}
	return total
}

// Usage is the breaker's view of a run in progress.
type Usage struct {
	Retries       map[domain.Stage]int
	RefereeVisits int
	Invocations   int
}

// UsageOf derives the usage counters from a workflow state.
func UsageOf(s *domain.WorkflowState) Usage {
	return Usage{
		Retries:       s.AgentRetryCount,
		RefereeVisits: s.Visits(domain.StageReferee),
		Invocations:   s.Invocations(),
	}
}

// CircuitBreaker decides whether a run may loop back to a stage.
type CircuitBreaker struct {
	budgets Budgets
}

// NewCircuitBreaker validates budgets and returns a breaker enforcing them.
func NewCircuitBreaker(budgets Budgets) (*CircuitBreaker, error) {
	if err := budgets.Validate(); err != nil {
		return nil, err
	}
	per := make(map[domain.Stage]int, len(budgets.PerStage))
	for s, n := range budgets.PerStage {
		per[s] = n
	}
	return &CircuitBreaker{budgets: Budgets{PerStage: per, MaxRefereeVisits: budgets.MaxRefereeVisits}}, nil
}

// Budgets returns the configured budgets.
func (cb *CircuitBreaker) Budgets() Budgets {
	return cb.budgets
}

// Allow reports whether routing to target is within budget.
// When it is not, reason names the bound that tripped.
func (cb *CircuitBreaker) Allow(target domain.Stage, u Usage) (ok bool, reason string) {
	if !target.IsRetryable() {
		return false, fmt.Sprintf("%s is not a retryable stage", target)
	}
	if u.RefereeVisits >= cb.budgets.MaxRefereeVisits {
		return false, fmt.Sprintf("referee visit budget exhausted (%d/%d)", u.RefereeVisits, cb.budgets.MaxRefereeVisits)
	}
	if used, budget := u.Retries[target], cb.budgets.StageBudget(target); used >= budget {
		return false, fmt.Sprintf("%s retry budget exhausted (%d/%d)", target, used, budget)
	}
	if ceiling := cb.budgets.Ceiling(); u.Invocations+target.PathLength() > ceiling {
		return false, fmt.Sprintf("stage invocation ceiling reached (%d+%d > %d)", u.Invocations, target.PathLength(), ceiling)
	}
	return true, ""
}
