package policy

import (
	"errors"
	"fmt"

	"github.com/aretw0/freelingo/pkg/domain"
)

// ErrInvalidRule is returned when a routing rule cannot be compiled.
var ErrInvalidRule = errors.New("invalid routing rule")

// Rule sends a run back to Target when the verdict carries Violation.
type Rule struct {
	Violation string       `json:"violation"`
	Target    domain.Stage `json:"target"`
}

// DefaultRules is the routing table in priority order.
// Table order, not the order of the verdict's violations, decides ties.
func DefaultRules() []Rule {
	return []Rule{
		{Violation: domain.ViolationFeedbackMisaligned, Target: domain.StageFeedback},
		{Violation: domain.ViolationPlannerIgnored, Target: domain.StagePlanner},
		{Violation: domain.ViolationWordsOffTopic, Target: domain.StageWords},
		{Violation: domain.ViolationChainIncoherent, Target: domain.StageFeedback},
	}
}

// UnmappedTarget receives runs whose verdict is invalid but matches no rule.
const UnmappedTarget = domain.StageFeedback

// Decision is the outcome of routing one verdict.
type Decision struct {
	// Target is where the run goes next: a retryable stage or END.
	Target domain.Stage
	// Proposed is what the rule table asked for before the breaker was consulted.
	Proposed domain.Stage
	// MatchedViolation is the violation whose rule fired, if any.
	MatchedViolation string
	// Tripped is set when the breaker overrode Proposed with END.
	Tripped bool
	Reason  string
}

// IsTerminal reports whether the decision ends the run.
func (d Decision) IsTerminal() bool {
	return d.Target == domain.StageEnd
}

// Router maps referee verdicts to the next stage.
type Router struct {
	rules   []Rule
	breaker *CircuitBreaker
}

// NewRouter compiles a rule table. Every rule needs a violation and a retryable target.
func NewRouter(rules []Rule, breaker *CircuitBreaker) (*Router, error) {
	if breaker == nil {
		return nil, fmt.Errorf("%w: circuit breaker is required", ErrInvalidRule)
	}
	for i, r := range rules {
		if r.Violation == "" {
			return nil, fmt.Errorf("%w: rule %d has no violation", ErrInvalidRule, i)
		}
		if !r.Target.IsRetryable() {
			return nil, fmt.Errorf("%w: rule %d (%s) targets %q", ErrInvalidRule, i, r.Violation, r.Target)
		}
	}
	return &Router{rules: append([]Rule(nil), rules...), breaker: breaker}, nil
}

// Rules returns a copy of the compiled table.
func (r *Router) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Propose applies the rule table alone. A valid verdict proposes END.
func (r *Router) Propose(verdict *domain.RefereeOutput) (target domain.Stage, matched string) {
	if verdict != nil && verdict.IsValid {
		return domain.StageEnd, ""
	}
	if verdict != nil {
		for _, rule := range r.rules {
			if verdict.HasViolation(rule.Violation) {
				return rule.Target, rule.Violation
			}
		}
	}
	return UnmappedTarget, ""
}

// Route decides where the run goes after verdict, given its current usage.
func (r *Router) Route(verdict *domain.RefereeOutput, u Usage) Decision {
	proposed, matched := r.Propose(verdict)
	d := Decision{Target: proposed, Proposed: proposed, MatchedViolation: matched}

	if proposed == domain.StageEnd {
		d.Reason = "referee accepted the chain"
		return d
	}
	if ok, reason := r.breaker.Allow(proposed, u); !ok {
		d.Target = domain.StageEnd
		d.Tripped = true
		d.Reason = reason
		return d
	}
	if matched == "" {
		d.Reason = "no routing rule matched"
	} else {
		d.Reason = "retry on " + matched
	}
	return d
}
