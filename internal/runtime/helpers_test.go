package runtime_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/ports"
	"github.com/stretchr/testify/assert"
)

func sampleSnapshot() domain.SessionSnapshot {
	return domain.SessionSnapshot{
		UserID:     "learner-1",
		KnownWords: []domain.Word{{Word: "bonjour"}, {Word: "merci"}},
	}
}

func sampleTranscript() domain.Transcript {
	return domain.BuildTranscript([]domain.Message{
		{Role: domain.RoleAI, Text: "Bonjour ! Ça va ?"},
		{Role: domain.RoleLearner, Text: "ça va bien merci"},
	})
}

func newState() *domain.WorkflowState {
	return domain.NewWorkflowState("run-1", "learner-1", sampleSnapshot(), sampleTranscript())
}

func goodFeedback() *domain.FeedbackOutput {
	return &domain.FeedbackOutput{Strengths: []string{"Answered every question"}}
}

func goodPlan() *domain.PlanOutput {
	return &domain.PlanOutput{SessionObjectives: []string{"Ask follow-up questions"}}
}

func goodWords() *domain.WordSuggestionOutput {
	return &domain.WordSuggestionOutput{
		NewWords: []string{"voyager"},
		Usages:   map[string]domain.UsageExample{"voyager": {Sentence: "J'aime voyager.", Translation: "I like to travel."}},
	}
}

func accept() *domain.RefereeOutput {
	return &domain.RefereeOutput{IsValid: true, Violations: []string{}, Rationale: domain.Rationale{ReasoningSummary: "coherent"}}
}

func reject(violations ...string) *domain.RefereeOutput {
	return &domain.RefereeOutput{Violations: violations, Rationale: domain.Rationale{ReasoningSummary: "rejected"}}
}

// scripted is a deterministic evaluator whose referee answers from a list,
// repeating the last verdict once the list runs out.
type scripted struct {
	mu       sync.Mutex
	verdicts []*domain.RefereeOutput
	calls    map[domain.Stage]int

	feedbackIn []domain.FeedbackBundle
	refereeIn  []domain.RefereeBundle
}

func newScripted(verdicts ...*domain.RefereeOutput) *scripted {
	return &scripted{verdicts: verdicts, calls: make(map[domain.Stage]int)}
}

func (s *scripted) count(stage domain.Stage) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[stage]++
	return s.calls[stage]
}

func (s *scripted) Evaluator() ports.Evaluator {
	return ports.EvaluatorFuncs{
		FeedbackFunc: func(_ context.Context, in domain.FeedbackBundle) (*domain.FeedbackOutput, error) {
			s.count(domain.StageFeedback)
			s.mu.Lock()
			s.feedbackIn = append(s.feedbackIn, in)
			s.mu.Unlock()
			return goodFeedback(), nil
		},
		PlanFunc: func(context.Context, domain.PlannerBundle) (*domain.PlanOutput, error) {
			s.count(domain.StagePlanner)
			return goodPlan(), nil
		},
		WordsFunc: func(context.Context, domain.WordsBundle) (*domain.WordSuggestionOutput, error) {
			s.count(domain.StageWords)
			return goodWords(), nil
		},
		RefereeFunc: func(_ context.Context, in domain.RefereeBundle) (*domain.RefereeOutput, error) {
			n := s.count(domain.StageReferee)
			s.mu.Lock()
			s.refereeIn = append(s.refereeIn, in)
			s.mu.Unlock()
			if len(s.verdicts) == 0 {
				return accept(), nil
			}
			if n > len(s.verdicts) {
				n = len(s.verdicts)
			}
			v := *s.verdicts[n-1]
			return &v, nil
		},
	}
}

// assertInvariants checks the properties every finished run must satisfy.
func assertInvariants(t *testing.T, s *domain.WorkflowState) {
	t.Helper()
	assert.True(t, s.Status.IsTerminal(), "run must end in a terminal status, got %q", s.Status)
	assert.NotNil(t, s.LastRefereeDecision, "last referee decision must be set")
	assert.Equal(t, s.Visits(domain.StageReferee), len(s.RefereeHistory), "referee history must match referee visits")
	if assert.NotEmpty(t, s.StateTransitions, "every run records at least one stage") {
		assert.Equal(t, domain.StageFeedback, s.StateTransitions[0], "runs start at FEEDBACK")
	}
	for stage, n := range s.AgentRetryCount {
		assert.GreaterOrEqual(t, n, 0, "retry count of %s", stage)
	}
}
