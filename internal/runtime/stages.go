package runtime

import (
	"context"
	"log/slog"

	"github.com/aretw0/freelingo/pkg/domain"
)

// execute runs one stage and writes its output into state.
func (e *Engine) execute(ctx context.Context, state *domain.WorkflowState, stage domain.Stage, logger *slog.Logger) {
	state.Enter(stage)
	visit := state.Visits(stage)
	started := e.now()
	e.emitStageEnter(ctx, &domain.StageEvent{
		RunID:     state.RunID,
		UserID:    state.UserID,
		Stage:     stage,
		Visit:     visit,
		Timestamp: started,
	}, logger)

	var failure *domain.EvaluatorFailure
	switch stage {
	case domain.StageFeedback:
		failure = e.feedback(ctx, state)
	case domain.StagePlanner:
		failure = e.planner(ctx, state)
	case domain.StageWords:
		failure = e.words(ctx, state)
	case domain.StageReferee:
		failure = e.referee(ctx, state)
	default:
		panic("runtime: unknown stage " + string(stage))
	}

	if failure != nil {
		logger.Warn("stage failed, using fallback",
			"stage", stage,
			"visit", visit,
			"kind", failure.Kind,
			"err", failure.Err,
		)
	} else {
		logger.Debug("stage completed", "stage", stage, "visit", visit)
	}

	finished := e.now()
	e.emitStageLeave(ctx, &domain.StageEvent{
		RunID:     state.RunID,
		UserID:    state.UserID,
		Stage:     stage,
		Visit:     visit,
		Timestamp: finished,
		Duration:  finished.Sub(started),
		Fallback:  failure != nil,
		Failure:   failure,
	}, logger)
}

func (e *Engine) feedback(ctx context.Context, state *domain.WorkflowState) *domain.EvaluatorFailure {
	in := domain.FeedbackBundle{
		Transcript:      state.Transcript.Turns,
		KnownWords:      state.Snapshot.KnownWordList(),
		RefereeFeedback: domain.NotesFrom(state.RefereeHistory),
	}
	out, failure := invoke(ctx, e.timeout, domain.StageFeedback,
		func(ctx context.Context) (*domain.FeedbackOutput, error) { return e.evaluator.Feedback(ctx, in) })
	if failure != nil {
		out = domain.FallbackFeedback()
	}
	state.LastFeedback = out
	return failure
}

func (e *Engine) planner(ctx context.Context, state *domain.WorkflowState) *domain.EvaluatorFailure {
	in := domain.PlannerBundle{
		KnownWords:      state.Snapshot.KnownWordList(),
		Feedback:        feedbackOf(state),
		RefereeFeedback: domain.NotesFrom(state.RefereeHistory),
	}
	out, failure := invoke(ctx, e.timeout, domain.StagePlanner,
		func(ctx context.Context) (*domain.PlanOutput, error) { return e.evaluator.Plan(ctx, in) })
	if failure != nil {
		out = domain.FallbackPlan()
	}
	state.LastPlan = out
	return failure
}

func (e *Engine) words(ctx context.Context, state *domain.WorkflowState) *domain.EvaluatorFailure {
	in := domain.WordsBundle{
		KnownWords:      state.Snapshot.KnownWordList(),
		Plan:            planOf(state),
		Feedback:        feedbackOf(state),
		RefereeFeedback: domain.NotesFrom(state.RefereeHistory),
	}
	out, failure := invoke(ctx, e.timeout, domain.StageWords,
		func(ctx context.Context) (*domain.WordSuggestionOutput, error) { return e.evaluator.Words(ctx, in) })
	if failure != nil {
		out = domain.FallbackWords()
	}
	state.LastWords = out
	return failure
}

func (e *Engine) referee(ctx context.Context, state *domain.WorkflowState) *domain.EvaluatorFailure {
	known := state.Snapshot.KnownWordList()
	words := wordsOf(state)
	in := domain.RefereeBundle{
		Transcript:   state.Transcript.Turns,
		KnownWords:   known,
		AllowedWords: allowedWords(known, words.NewWords),
		Feedback:     feedbackOf(state),
		Plan:         planOf(state),
		Words:        words,
	}
	out, failure := invoke(ctx, e.timeout, domain.StageReferee,
		func(ctx context.Context) (*domain.RefereeOutput, error) { return e.evaluator.Referee(ctx, in) })
	if failure != nil {
		out = domain.FallbackReferee()
	}
	// The evaluator may reuse its output; the run keeps its own copies.
	state.LastRefereeDecision = out.Clone()
	state.RefereeHistory = append(state.RefereeHistory, *out.Clone())
	return failure
}

func feedbackOf(state *domain.WorkflowState) domain.FeedbackOutput {
	if state.LastFeedback == nil {
		return *domain.FallbackFeedback()
	}
	return *state.LastFeedback
}

func planOf(state *domain.WorkflowState) domain.PlanOutput {
	if state.LastPlan == nil {
		return *domain.FallbackPlan()
	}
	return *state.LastPlan
}

func wordsOf(state *domain.WorkflowState) domain.WordSuggestionOutput {
	if state.LastWords == nil {
		return *domain.FallbackWords()
	}
	return *state.LastWords
}

// allowedWords is known followed by the new words not already known.
func allowedWords(known, fresh []string) []string {
	out := make([]string, 0, len(known)+len(fresh))
	seen := make(map[string]bool, cap(out))
	for _, list := range [][]string{known, fresh} {
		for _, w := range list {
			if !seen[w] {
				seen[w] = true
				out = append(out, w)
			}
		}
	}
	return out
}
