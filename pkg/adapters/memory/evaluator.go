package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/aretw0/freelingo/pkg/domain"
)

const (
	// DefaultMaxNewWords caps the suggestions of the offline evaluator.
	DefaultMaxNewWords = 3

	maxMistakes = 3
	maxExamples = 3
)

// Evaluator is a deterministic, rule-based ports.Evaluator that needs no model.
// It backs offline runs and tests. Its referee can be scripted.
type Evaluator struct {
	maxNewWords int
	script      []*domain.RefereeOutput

	mu           sync.Mutex
	refereeCalls int
}

// EvaluatorOption configures the Evaluator.
type EvaluatorOption func(*Evaluator)

// WithRefereeScript makes the referee answer verdicts in order, repeating the last one.
func WithRefereeScript(verdicts ...*domain.RefereeOutput) EvaluatorOption {
	return func(e *Evaluator) {
		e.script = verdicts
	}
}

// WithMaxNewWords overrides DefaultMaxNewWords.
func WithMaxNewWords(n int) EvaluatorOption {
	return func(e *Evaluator) {
		if n > 0 {
			e.maxNewWords = n
		}
	}
}

// NewEvaluator creates a rule-based evaluator.
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{maxNewWords: DefaultMaxNewWords}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

const (
	hintCapital  = "Start each sentence with a capital letter."
	hintSentence = "Answer with a full sentence, not a single word."
	extendGoal   = "Use new words to extend your answers"
)

// Feedback flags uncapitalised and one-word answers and quotes known words in use.
func (e *Evaluator) Feedback(ctx context.Context, in domain.FeedbackBundle) (*domain.FeedbackOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	known := wordSet(in.KnownWords)
	out := &domain.FeedbackOutput{
		Mistakes:             []domain.Mistake{},
		ConversationExamples: []domain.ConversationExample{},
	}

	answers := 0
	usedKnown := map[string]bool{}
	for _, turn := range in.Transcript {
		text := strings.TrimSpace(turn.User.Text)
		if text == "" {
			continue
		}
		answers++

		words := tokenize(text)
		if len(out.Mistakes) < maxMistakes {
			switch {
			case len(words) == 1:
				out.Mistakes = append(out.Mistakes, domain.Mistake{
					Kind: domain.MistakeGrammar, Evidence: text, FixHint: hintSentence, Priority: 1,
				})
			case startsLower(text):
				out.Mistakes = append(out.Mistakes, domain.Mistake{
					Kind: domain.MistakeGrammar, Evidence: firstWords(text, 5), FixHint: hintCapital, Priority: 2,
				})
			}
		}

		for _, w := range words {
			if known[w] && !usedKnown[w] && len(out.ConversationExamples) < maxExamples {
				usedKnown[w] = true
				out.ConversationExamples = append(out.ConversationExamples, domain.ConversationExample{Word: w, Sentence: text})
			}
		}
	}

	out.Strengths = []string{fmt.Sprintf("Completed %d exchanges", answers)}
	if len(usedKnown) > 0 {
		out.Strengths = append(out.Strengths, fmt.Sprintf("Reused %d known words", len(usedKnown)))
	}
	return out, nil
}

// Plan turns each mistake hint into an objective and unknown evidence words into gaps.
func (e *Evaluator) Plan(ctx context.Context, in domain.PlannerBundle) (*domain.PlanOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	known := wordSet(in.KnownWords)
	out := &domain.PlanOutput{SessionObjectives: []string{}, VocabGaps: []string{}}

	seenHint := map[string]bool{}
	gaps := map[string]bool{}
	for _, m := range in.Feedback.Mistakes {
		if !seenHint[m.FixHint] {
			seenHint[m.FixHint] = true
			out.SessionObjectives = append(out.SessionObjectives, "Work on: "+m.FixHint)
		}
		for _, w := range tokenize(m.Evidence) {
			if len([]rune(w)) < 3 || known[w] || gaps[w] {
				continue
			}
			gaps[w] = true
			out.VocabGaps = append(out.VocabGaps, w)
		}
	}
	out.SessionObjectives = append(out.SessionObjectives, extendGoal)
	return out, nil
}

// Words suggests the plan's vocabulary gaps, with usages taken from feedback examples.
func (e *Evaluator) Words(ctx context.Context, in domain.WordsBundle) (*domain.WordSuggestionOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	known := wordSet(in.KnownWords)
	out := &domain.WordSuggestionOutput{NewWords: []string{}, Usages: map[string]domain.UsageExample{}}

	for _, w := range in.Plan.VocabGaps {
		if len(out.NewWords) >= e.maxNewWords {
			break
		}
		if known[w] || contains(out.NewWords, w) {
			continue
		}
		out.NewWords = append(out.NewWords, w)
		for _, m := range in.Feedback.Mistakes {
			if contains(tokenize(m.Evidence), w) {
				out.Usages[w] = domain.UsageExample{Sentence: m.Evidence, Translation: m.FixHintTranslation}
				break
			}
		}
	}
	return out, nil
}

// Referee checks each link of the chain with the same rules the other stages apply.
func (e *Evaluator) Referee(ctx context.Context, in domain.RefereeBundle) (*domain.RefereeOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v := e.scripted(); v != nil {
		return v, nil
	}

	checks := domain.ChainChecks{
		FeedbackTranscriptAlignment:  feedbackAligned(in.Feedback, in.Transcript),
		PlannerFeedbackIncorporation: planIncorporates(in.Plan, in.Feedback),
		NewWordsPlanAlignment:        wordsFollowPlan(in.Words, in.Plan),
	}
	checks.OverallChainCoherence = checks.FeedbackTranscriptAlignment &&
		checks.PlannerFeedbackIncorporation && checks.NewWordsPlanAlignment

	out := &domain.RefereeOutput{Violations: []string{}}
	if !checks.FeedbackTranscriptAlignment {
		out.Violations = append(out.Violations, domain.ViolationFeedbackMisaligned)
	}
	if !checks.PlannerFeedbackIncorporation {
		out.Violations = append(out.Violations, domain.ViolationPlannerIgnored)
	}
	if !checks.NewWordsPlanAlignment {
		out.Violations = append(out.Violations, domain.ViolationWordsOffTopic)
	}
	out.IsValid = checks.OverallChainCoherence

	passed := 4 - len(out.Violations)
	if !out.IsValid {
		passed--
	}
	out.Rationale = domain.Rationale{
		ReasoningSummary: fmt.Sprintf("%d of 4 chain checks passed", passed),
		ChainChecks:      checks,
	}
	return out, nil
}

func (e *Evaluator) scripted() *domain.RefereeOutput {
	if len(e.script) == 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refereeCalls++
	i := e.refereeCalls
	if i > len(e.script) {
		i = len(e.script)
	}
	v := *e.script[i-1]
	v.Violations = append([]string{}, v.Violations...)
	return &v
}

// feedbackAligned requires every mistake to quote something the learner said.
func feedbackAligned(f domain.FeedbackOutput, transcript []domain.Turn) bool {
	for _, m := range f.Mistakes {
		found := false
		for _, t := range transcript {
			if strings.Contains(strings.ToLower(t.User.Text), strings.ToLower(m.Evidence)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// planIncorporates requires every mistake hint to be named by an objective.
func planIncorporates(p domain.PlanOutput, f domain.FeedbackOutput) bool {
	for _, m := range f.Mistakes {
		found := false
		for _, o := range p.SessionObjectives {
			if strings.Contains(o, m.FixHint) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// wordsFollowPlan requires every new word to come from the plan.
func wordsFollowPlan(w domain.WordSuggestionOutput, p domain.PlanOutput) bool {
	for _, word := range w.NewWords {
		if contains(p.VocabGaps, word) {
			continue
		}
		found := false
		for _, o := range p.SessionObjectives {
			if contains(tokenize(o), word) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\'' && r != '-'
	})
}

func startsLower(text string) bool {
	for _, r := range text {
		return unicode.IsLower(r)
	}
	return false
}

func firstWords(text string, n int) string {
	fields := strings.Fields(text)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}
	return set
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
