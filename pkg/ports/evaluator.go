package ports

import (
	"context"

	"github.com/aretw0/freelingo/pkg/domain"
)

// Evaluator produces the output of each stage of the agent chain.
//
// Implementations may call a remote model, so every method must honour ctx.
// Returned outputs are validated by the engine; an error or an invalid output
// makes the engine substitute the stage fallback.
type Evaluator interface {
	Feedback(ctx context.Context, in domain.FeedbackBundle) (*domain.FeedbackOutput, error)
	Plan(ctx context.Context, in domain.PlannerBundle) (*domain.PlanOutput, error)
	Words(ctx context.Context, in domain.WordsBundle) (*domain.WordSuggestionOutput, error)
	Referee(ctx context.Context, in domain.RefereeBundle) (*domain.RefereeOutput, error)
}

// EvaluatorFuncs adapts plain functions to Evaluator.
// A nil field returns domain.ErrEvaluatorNotConfigured.
type EvaluatorFuncs struct {
	FeedbackFunc func(context.Context, domain.FeedbackBundle) (*domain.FeedbackOutput, error)
	PlanFunc     func(context.Context, domain.PlannerBundle) (*domain.PlanOutput, error)
	WordsFunc    func(context.Context, domain.WordsBundle) (*domain.WordSuggestionOutput, error)
	RefereeFunc  func(context.Context, domain.RefereeBundle) (*domain.RefereeOutput, error)
}

var _ Evaluator = EvaluatorFuncs{}

func (f EvaluatorFuncs) Feedback(ctx context.Context, in domain.FeedbackBundle) (*domain.FeedbackOutput, error) {
	if f.FeedbackFunc == nil {
		return nil, domain.ErrEvaluatorNotConfigured
	}
	return f.FeedbackFunc(ctx, in)
}

func (f EvaluatorFuncs) Plan(ctx context.Context, in domain.PlannerBundle) (*domain.PlanOutput, error) {
	if f.PlanFunc == nil {
		return nil, domain.ErrEvaluatorNotConfigured
	}
	return f.PlanFunc(ctx, in)
}

func (f EvaluatorFuncs) Words(ctx context.Context, in domain.WordsBundle) (*domain.WordSuggestionOutput, error) {
	if f.WordsFunc == nil {
		return nil, domain.ErrEvaluatorNotConfigured
	}
	return f.WordsFunc(ctx, in)
}

func (f EvaluatorFuncs) Referee(ctx context.Context, in domain.RefereeBundle) (*domain.RefereeOutput, error) {
	if f.RefereeFunc == nil {
		return nil, domain.ErrEvaluatorNotConfigured
	}
	return f.RefereeFunc(ctx, in)
}
