package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/freelingo/internal/runtime"
	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	F = domain.StageFeedback
	P = domain.StagePlanner
	W = domain.StageWords
	R = domain.StageReferee
)

func TestEngine_StraightLine(t *testing.T) {
	ev := newScripted(accept())
	eng := runtime.NewEngine(ev.Evaluator())
	require.NoError(t, eng.ConstructionErr())

	s := eng.Run(context.Background(), newState())

	assertInvariants(t, s)
	assert.Equal(t, []domain.Stage{F, P, W, R}, s.StateTransitions)
	assert.Equal(t, domain.RunValidated, s.Status)
	assert.True(t, s.Validated())
	assert.Equal(t, domain.StageEnd, s.NextStage)
	assert.Empty(t, s.AgentRetryCount)
	assert.Len(t, s.RefereeHistory, 1)
	assert.Equal(t, goodFeedback(), s.LastFeedback)
	assert.Equal(t, goodPlan(), s.LastPlan)
	assert.Equal(t, goodWords(), s.LastWords)
}

func TestEngine_BoundedRetryOnWords(t *testing.T) {
	ev := newScripted(reject(domain.ViolationWordsOffTopic))
	eng := runtime.NewEngine(ev.Evaluator())

	s := eng.Run(context.Background(), newState())

	assertInvariants(t, s)
	assert.Equal(t, []domain.Stage{F, P, W, R, W, R, W, R}, s.StateTransitions)
	assert.Equal(t, 2, s.Retries(W), "exactly two WORDS retries")
	assert.Equal(t, domain.RunBreakerTripped, s.Status)
	assert.Contains(t, s.TerminationReason, "WORDS retry budget exhausted")
	assert.Equal(t, 3, ev.calls[R])
	assert.Equal(t, 1, ev.calls[F])
}

func TestEngine_UnmappedViolationsLoopToFeedback(t *testing.T) {
	tests := []struct {
		name        string
		verdict     *domain.RefereeOutput
		budgets     policy.Budgets
		wantVisits  int
		wantRetries int
		wantReason  string
	}{
		{
			name:        "Empty list trips FEEDBACK budget",
			verdict:     reject(),
			budgets:     policy.DefaultBudgets(),
			wantVisits:  3,
			wantRetries: 2,
			wantReason:  "FEEDBACK retry budget exhausted",
		},
		{
			name:        "Unknown tag trips FEEDBACK budget",
			verdict:     reject("sounds_robotic"),
			budgets:     policy.DefaultBudgets(),
			wantVisits:  3,
			wantRetries: 2,
			wantReason:  "FEEDBACK retry budget exhausted",
		},
		{
			name:        "Global visit budget trips first",
			verdict:     reject(),
			budgets:     policy.UniformBudgets(10, 2),
			wantVisits:  2,
			wantRetries: 1,
			wantReason:  "referee visit budget exhausted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := runtime.NewEngine(newScripted(tt.verdict).Evaluator(), runtime.WithBudgets(tt.budgets))
			s := eng.Run(context.Background(), newState())

			assertInvariants(t, s)
			assert.Equal(t, tt.wantVisits, s.Visits(R))
			assert.Equal(t, tt.wantRetries, s.Retries(F))
			assert.Zero(t, s.Retries(P))
			assert.Zero(t, s.Retries(W))
			assert.Equal(t, domain.RunBreakerTripped, s.Status)
			assert.Contains(t, s.TerminationReason, tt.wantReason)
			for i := 0; i < len(s.StateTransitions); i += 4 {
				assert.Equal(t, F, s.StateTransitions[i], "every pass restarts at FEEDBACK")
			}
		})
	}
}

func TestEngine_TerminationBound(t *testing.T) {
	all := []string{
		domain.ViolationFeedbackMisaligned,
		domain.ViolationPlannerIgnored,
		domain.ViolationWordsOffTopic,
		domain.ViolationChainIncoherent,
		"unknown",
	}

	tests := []struct {
		name     string
		verdicts []*domain.RefereeOutput
		budgets  policy.Budgets
	}{
		{"Always invalid, defaults", []*domain.RefereeOutput{reject()}, policy.DefaultBudgets()},
		{"All tags at once", []*domain.RefereeOutput{reject(all...)}, policy.DefaultBudgets()},
		{
			name: "Oscillating verdicts",
			verdicts: []*domain.RefereeOutput{
				reject(domain.ViolationFeedbackMisaligned),
				reject(domain.ViolationPlannerIgnored),
				reject(domain.ViolationFeedbackMisaligned),
				reject(domain.ViolationPlannerIgnored),
				reject(domain.ViolationWordsOffTopic),
				reject(domain.ViolationWordsOffTopic),
			},
			budgets: policy.DefaultBudgets(),
		},
		{"Zero retry budget", []*domain.RefereeOutput{reject()}, policy.UniformBudgets(0, 5)},
		{"Large stage budgets", []*domain.RefereeOutput{reject(domain.ViolationFeedbackMisaligned)}, policy.UniformBudgets(50, 7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := runtime.NewEngine(newScripted(tt.verdicts...).Evaluator(), runtime.WithBudgets(tt.budgets))
			s := eng.Run(context.Background(), newState())

			assertInvariants(t, s)
			assert.LessOrEqual(t, s.Invocations(), tt.budgets.Ceiling())
			assert.LessOrEqual(t, s.Visits(R), tt.budgets.MaxRefereeVisits)
			for _, stage := range domain.RetryableStages {
				assert.LessOrEqual(t, s.Retries(stage), tt.budgets.StageBudget(stage))
			}
			assert.Equal(t, domain.RunBreakerTripped, s.Status)
		})
	}
}

func TestEngine_ZeroRetryBudgetEndsAfterOnePass(t *testing.T) {
	eng := runtime.NewEngine(newScripted(reject()).Evaluator(), runtime.WithBudgets(policy.UniformBudgets(0, 5)))
	s := eng.Run(context.Background(), newState())

	assert.Equal(t, []domain.Stage{F, P, W, R}, s.StateTransitions)
	assert.Equal(t, domain.RunBreakerTripped, s.Status)
}

func TestEngine_RecoversAfterRetry(t *testing.T) {
	ev := newScripted(reject(domain.ViolationPlannerIgnored), accept())
	s := runtime.NewEngine(ev.Evaluator()).Run(context.Background(), newState())

	assertInvariants(t, s)
	assert.Equal(t, []domain.Stage{F, P, W, R, P, W, R}, s.StateTransitions)
	assert.Equal(t, map[domain.Stage]int{P: 1}, s.AgentRetryCount)
	assert.Equal(t, domain.RunValidated, s.Status)
	assert.Len(t, s.RefereeHistory, 2)
	assert.False(t, s.RefereeHistory[0].IsValid)
	assert.True(t, s.RefereeHistory[1].IsValid)
}

func TestEngine_RetryBundlesCarryRefereeFeedback(t *testing.T) {
	ev := newScripted(reject(domain.ViolationFeedbackMisaligned), accept())
	runtime.NewEngine(ev.Evaluator()).Run(context.Background(), newState())

	require.Len(t, ev.feedbackIn, 2)
	assert.Empty(t, ev.feedbackIn[0].RefereeFeedback)
	require.Len(t, ev.feedbackIn[1].RefereeFeedback, 1)
	note := ev.feedbackIn[1].RefereeFeedback[0]
	assert.Equal(t, 1, note.Attempt)
	assert.Equal(t, []string{domain.ViolationFeedbackMisaligned}, note.Violations)
	assert.Equal(t, "rejected", note.Summary)

	assert.Equal(t, []string{"bonjour", "merci"}, ev.feedbackIn[0].KnownWords)
	assert.Len(t, ev.feedbackIn[0].Transcript, 1)
}

func TestEngine_RefereeSeesAllowedWords(t *testing.T) {
	ev := newScripted(accept())
	runtime.NewEngine(ev.Evaluator()).Run(context.Background(), newState())

	require.Len(t, ev.refereeIn, 1)
	in := ev.refereeIn[0]
	assert.Equal(t, []string{"bonjour", "merci"}, in.KnownWords)
	assert.Equal(t, []string{"bonjour", "merci", "voyager"}, in.AllowedWords)
	assert.Equal(t, *goodPlan(), in.Plan)
	assert.Equal(t, *goodWords(), in.Words)
}

func TestEngine_Idempotent(t *testing.T) {
	verdicts := []*domain.RefereeOutput{reject(domain.ViolationWordsOffTopic), reject(domain.ViolationPlannerIgnored), accept()}
	fixed := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return fixed }

	a := runtime.NewEngine(newScripted(verdicts...).Evaluator(), runtime.WithClock(clock)).Run(context.Background(), newState())
	b := runtime.NewEngine(newScripted(verdicts...).Evaluator(), runtime.WithClock(clock)).Run(context.Background(), newState())

	assert.Equal(t, a, b)
}

func TestEngine_ConcurrentRunsAreIndependent(t *testing.T) {
	eng := runtime.NewEngine(newScripted(reject(domain.ViolationWordsOffTopic)).Evaluator())

	results := make(chan *domain.WorkflowState, 8)
	for i := 0; i < cap(results); i++ {
		go func() {
			results <- eng.Run(context.Background(), newState())
		}()
	}
	for i := 0; i < cap(results); i++ {
		s := <-results
		assertInvariants(t, s)
		assert.Equal(t, 8, s.Invocations())
	}
}

func TestEngine_Hooks(t *testing.T) {
	var enters, leaves []domain.Stage
	var routes []*domain.RouteEvent
	var done *domain.RunEvent

	hooks := domain.LifecycleHooks{
		OnStageEnter:  func(_ context.Context, e *domain.StageEvent) { enters = append(enters, e.Stage) },
		OnStageLeave:  func(_ context.Context, e *domain.StageEvent) { leaves = append(leaves, e.Stage) },
		OnRoute:       func(_ context.Context, e *domain.RouteEvent) { routes = append(routes, e) },
		OnRunComplete: func(_ context.Context, e *domain.RunEvent) { done = e },
	}

	ev := newScripted(reject(domain.ViolationWordsOffTopic), accept())
	s := runtime.NewEngine(ev.Evaluator(), runtime.WithLifecycleHooks(hooks)).Run(context.Background(), newState())

	assert.Equal(t, s.StateTransitions, enters)
	assert.Equal(t, s.StateTransitions, leaves)
	require.Len(t, routes, 2)
	assert.Equal(t, W, routes[0].Target)
	assert.Equal(t, domain.ViolationWordsOffTopic, routes[0].MatchedViolation)
	assert.Equal(t, 1, routes[0].RefereeVisit)
	assert.Equal(t, domain.StageEnd, routes[1].Target)
	assert.False(t, routes[1].Tripped)
	require.NotNil(t, done)
	assert.Equal(t, domain.RunValidated, done.Status)
	assert.Equal(t, 6, done.Invocations)
}
