package policy_test

import (
	"testing"

	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgets_Defaults(t *testing.T) {
	b := policy.DefaultBudgets()
	assert.Equal(t, 2, b.StageBudget(domain.StageFeedback))
	assert.Equal(t, 2, b.StageBudget(domain.StagePlanner))
	assert.Equal(t, 2, b.StageBudget(domain.StageWords))
	assert.Equal(t, 0, b.StageBudget(domain.StageReferee))
	assert.Equal(t, 5, b.MaxRefereeVisits)
	assert.Equal(t, 4+6+5, b.Ceiling())
}

func TestBudgets_Validate(t *testing.T) {
	tests := []struct {
		name    string
		budgets policy.Budgets
		wantErr bool
	}{
		{"Defaults", policy.DefaultBudgets(), false},
		{"Zero retries", policy.UniformBudgets(0, 1), false},
		{"Zero referee visits", policy.UniformBudgets(2, 0), true},
		{"Negative stage", policy.UniformBudgets(-1, 5), true},
		{"Referee is not retryable", policy.Budgets{PerStage: map[domain.Stage]int{domain.StageReferee: 1}, MaxRefereeVisits: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.budgets.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, policy.ErrInvalidBudget)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCircuitBreaker_Allow(t *testing.T) {
	cb, err := policy.NewCircuitBreaker(policy.DefaultBudgets())
	require.NoError(t, err)

	tests := []struct {
		name   string
		target domain.Stage
		usage  policy.Usage
		ok     bool
		reason string
	}{
		{
			name:   "First retry",
			target: domain.StageWords,
			usage:  policy.Usage{Retries: map[domain.Stage]int{}, RefereeVisits: 1, Invocations: 4},
			ok:     true,
		},
		{
			name:   "Stage budget spent",
			target: domain.StagePlanner,
			usage:  policy.Usage{Retries: map[domain.Stage]int{domain.StagePlanner: 2}, RefereeVisits: 3, Invocations: 10},
			reason: "PLANNER retry budget exhausted (2/2)",
		},
		{
			name:   "Referee budget spent",
			target: domain.StageWords,
			usage:  policy.Usage{Retries: map[domain.Stage]int{}, RefereeVisits: 5, Invocations: 12},
			reason: "referee visit budget exhausted (5/5)",
		},
		{
			name:   "Invocation ceiling",
			target: domain.StageFeedback,
			usage: policy.Usage{
				Retries:       map[domain.Stage]int{domain.StageFeedback: 1, domain.StagePlanner: 2},
				RefereeVisits: 4,
				Invocations:   14,
			},
			reason: "stage invocation ceiling reached (14+4 > 15)",
		},
		{
			name:   "END is not a retry",
			target: domain.StageEnd,
			usage:  policy.Usage{},
			reason: "END is not a retryable stage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := cb.Allow(tt.target, tt.usage)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

// Simulates the engine loop over every verdict pattern and checks that the
// invocation count never exceeds the budget ceiling.
func TestCircuitBreaker_BoundsEveryVerdictSequence(t *testing.T) {
	budgets := policy.DefaultBudgets()
	cb, err := policy.NewCircuitBreaker(budgets)
	require.NoError(t, err)
	r, err := policy.NewRouter(policy.DefaultRules(), cb)
	require.NoError(t, err)

	tags := []string{
		domain.ViolationFeedbackMisaligned,
		domain.ViolationPlannerIgnored,
		domain.ViolationWordsOffTopic,
	}

	// Each sequence picks one tag per referee visit.
	var walk func(seq []int)
	walk = func(seq []int) {
		if len(seq) == budgets.MaxRefereeVisits {
			invocations := simulate(r, tags, seq)
			assert.LessOrEqual(t, invocations, budgets.Ceiling(), "sequence %v", seq)
			return
		}
		for i := range tags {
			walk(append(append([]int(nil), seq...), i))
		}
	}
	walk(nil)
}

func simulate(r *policy.Router, tags []string, seq []int) int {
	u := policy.Usage{Retries: map[domain.Stage]int{}, Invocations: 4, RefereeVisits: 1}
	for _, pick := range seq {
		d := r.Route(&domain.RefereeOutput{Violations: []string{tags[pick]}}, u)
		if d.IsTerminal() {
			break
		}
		u.Retries[d.Target]++
		u.Invocations += d.Target.PathLength()
		u.RefereeVisits++
	}
	return u.Invocations
}
