package report_test

import (
	"testing"
	"time"

	"github.com/aretw0/freelingo/internal/presentation/report"
	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func finished() *domain.WorkflowState {
	s := domain.NewWorkflowState("run-1", "learner-1", domain.SessionSnapshot{}, domain.Transcript{})
	for _, st := range domain.ChainOrder {
		s.Enter(st)
	}
	s.LastFeedback = &domain.FeedbackOutput{
		Strengths: []string{"Completed 2 exchanges"},
		Mistakes: []domain.Mistake{
			{Kind: domain.MistakeWordOrder, Evidence: "je vais | demain", FixHint: "Time goes last", Priority: 2},
			{Kind: domain.MistakeGrammar, Evidence: "je suis allé", FixHint: "Agree the participle", FixHintTranslation: "Accorde le participe", Priority: 1},
		},
		ConversationExamples: []domain.ConversationExample{{Word: "gare", Sentence: "Je vais à la gare", Translation: "I go to the station"}},
	}
	s.LastPlan = &domain.PlanOutput{SessionObjectives: []string{"Past tense"}, VocabGaps: []string{"billet"}}
	s.LastWords = &domain.WordSuggestionOutput{
		NewWords: []string{"billet", "quai"},
		Usages:   map[string]domain.UsageExample{"billet": {Sentence: "Un billet, s'il vous plaît", Translation: "A ticket, please"}},
	}
	s.LastRefereeDecision = &domain.RefereeOutput{IsValid: true, Violations: []string{}, Rationale: domain.Rationale{ReasoningSummary: "4 of 4 chain checks passed"}}
	s.StartedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Finish(domain.RunValidated, "referee accepted the chain", s.StartedAt.Add(1500*time.Millisecond))
	return s
}

func TestMarkdown(t *testing.T) {
	out := report.Markdown(finished(), "")

	for _, want := range []string{
		"# Session report",
		"_Status: validated · run run-1 · 4 stage calls · 1.5s_",
		"### Strengths\n\n- Completed 2 exchanges",
		"| 1 | grammar | je suis allé | Agree the participle (Accorde le participe) |\n| 2 | word_order | je vais \\| demain | Time goes last |",
		"- **gare**: Je vais à la gare _(I go to the station)_",
		"### Objectives\n\n- Past tense",
		"- **billet**: Un billet, s'il vous plaît _(A ticket, please)_\n- **quai**\n",
		"4 of 4 chain checks passed",
		"Stopped: referee accepted the chain",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "> ")
	assert.NotContains(t, out, "### Violations")
}

func TestMarkdown_Notice(t *testing.T) {
	s := finished()
	s.LastWords = domain.FallbackWords()

	out := report.Markdown(s, "feedback unavailable this time")
	assert.Contains(t, out, "> feedback unavailable this time")
	assert.NotContains(t, out, "## New words")

	assert.Contains(t, report.Markdown(nil, ""), "> no run")
}
