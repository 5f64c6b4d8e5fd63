package domain

import (
	"fmt"
	"sort"

	"github.com/aretw0/freelingo/pkg/schema"
)

// MistakeKind classifies a learner mistake.
type MistakeKind string

const (
	MistakeGrammar    MistakeKind = "grammar"
	MistakeWordChoice MistakeKind = "word_choice"
	MistakeWordOrder  MistakeKind = "word_order"
)

// Mistake is one recurring or impactful error found in the transcript.
type Mistake struct {
	Kind               MistakeKind `json:"kind" yaml:"kind"`
	Evidence           string      `json:"evidence" yaml:"evidence"`
	FixHint            string      `json:"fix_hint" yaml:"fix_hint"`
	FixHintTranslation string      `json:"fix_hint_translation" yaml:"fix_hint_translation"`
	// Priority ranks the mistake, 1 being the most important.
	Priority int `json:"priority" yaml:"priority"`
}

// ConversationExample shows a word used in a natural sentence.
type ConversationExample struct {
	Word        string `json:"word" yaml:"word"`
	Sentence    string `json:"sentence" yaml:"sentence"`
	Translation string `json:"translation" yaml:"translation"`
}

// FeedbackOutput is the result of the FEEDBACK stage.
type FeedbackOutput struct {
	Strengths            []string              `json:"strengths" yaml:"strengths"`
	Mistakes             []Mistake             `json:"mistakes" yaml:"mistakes"`
	ConversationExamples []ConversationExample `json:"conversation_examples" yaml:"conversation_examples"`
}

// MaxMistakePriority is the lowest priority a mistake may carry.
const MaxMistakePriority = 3

// Validate checks the feedback against its schema.
func (f *FeedbackOutput) Validate() error {
	var c schema.Checker
	c.NonEmpty("strengths", len(f.Strengths))
	c.Strings("strengths", f.Strengths)
	for i, m := range f.Mistakes {
		field := fmt.Sprintf("mistakes[%d]", i)
		c.OneOf(field+".kind", string(m.Kind),
			string(MistakeGrammar), string(MistakeWordChoice), string(MistakeWordOrder))
		c.NotBlank(field+".evidence", m.Evidence)
		c.NotBlank(field+".fix_hint", m.FixHint)
		if m.Priority < 1 || m.Priority > MaxMistakePriority {
			c.Fail(field+".priority", fmt.Sprintf("must be between 1 and %d", MaxMistakePriority), m.Priority)
		}
	}
	for i, ex := range f.ConversationExamples {
		field := fmt.Sprintf("conversation_examples[%d]", i)
		c.NotBlank(field+".word", ex.Word)
		c.NotBlank(field+".sentence", ex.Sentence)
	}
	return c.Err()
}

// FallbackFeedback is substituted when the FEEDBACK evaluator fails.
func FallbackFeedback() *FeedbackOutput {
	return &FeedbackOutput{
		Strengths:            []string{"Completed the session"},
		Mistakes:             []Mistake{},
		ConversationExamples: []ConversationExample{},
	}
}

// PlanOutput is the result of the PLANNER stage.
type PlanOutput struct {
	SessionObjectives []string `json:"session_objectives" yaml:"session_objectives"`
	VocabGaps         []string `json:"vocab_gaps" yaml:"vocab_gaps"`
}

// Validate checks the plan against its schema.
func (p *PlanOutput) Validate() error {
	var c schema.Checker
	c.NonEmpty("session_objectives", len(p.SessionObjectives))
	c.Strings("session_objectives", p.SessionObjectives)
	c.Strings("vocab_gaps", p.VocabGaps)
	return c.Err()
}

// FallbackPlan is substituted when the PLANNER evaluator fails.
func FallbackPlan() *PlanOutput {
	return &PlanOutput{
		SessionObjectives: []string{"Expand vocabulary", "Practice conversation"},
		VocabGaps:         []string{},
	}
}

// UsageExample is a sentence using a suggested word, with its translation.
type UsageExample struct {
	Sentence    string `json:"sentence" yaml:"sentence"`
	Translation string `json:"translation" yaml:"translation"`
}

// WordSuggestionOutput is the result of the WORDS stage.
type WordSuggestionOutput struct {
	NewWords []string                `json:"new_words" yaml:"new_words"`
	Usages   map[string]UsageExample `json:"usages" yaml:"usages"`
}

// Validate checks the suggestion against its schema.
// Every usage must belong to a suggested word; words may lack a usage.
func (w *WordSuggestionOutput) Validate() error {
	var c schema.Checker
	c.Strings("new_words", w.NewWords)
	seen := make(map[string]bool, len(w.NewWords))
	for i, word := range w.NewWords {
		if seen[word] {
			c.Fail(fmt.Sprintf("new_words[%d]", i), "duplicate word", word)
		}
		seen[word] = true
	}
	keys := make([]string, 0, len(w.Usages))
	for k := range w.Usages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		field := fmt.Sprintf("usages[%s]", k)
		if !seen[k] {
			c.Fail(field, "usage for a word that is not suggested", k)
		}
		c.NotBlank(field+".sentence", w.Usages[k].Sentence)
	}
	return c.Err()
}

// FallbackWords is substituted when the WORDS evaluator fails.
// It suggests nothing rather than guessing.
func FallbackWords() *WordSuggestionOutput {
	return &WordSuggestionOutput{
		NewWords: []string{},
		Usages:   map[string]UsageExample{},
	}
}

// ChainChecks are the referee's per-link consistency verdicts.
type ChainChecks struct {
	FeedbackTranscriptAlignment  bool `json:"feedback_transcript_alignment" yaml:"feedback_transcript_alignment"`
	PlannerFeedbackIncorporation bool `json:"planner_feedback_incorporation" yaml:"planner_feedback_incorporation"`
	NewWordsPlanAlignment        bool `json:"new_words_plan_alignment" yaml:"new_words_plan_alignment"`
	OverallChainCoherence        bool `json:"overall_chain_coherence" yaml:"overall_chain_coherence"`
}

// Rationale explains a referee verdict.
type Rationale struct {
	ReasoningSummary string      `json:"reasoning_summary" yaml:"reasoning_summary"`
	ChainChecks      ChainChecks `json:"chain_checks" yaml:"chain_checks"`
}

// RefereeOutput is the result of the REFEREE stage.
type RefereeOutput struct {
	IsValid    bool      `json:"is_valid" yaml:"is_valid"`
	Violations []string  `json:"violations" yaml:"violations"`
	Rationale  Rationale `json:"rationale" yaml:"rationale"`
}

// Validate checks the verdict against its schema. A valid verdict carries no violations.
func (r *RefereeOutput) Validate() error {
	var c schema.Checker
	if r.IsValid && len(r.Violations) > 0 {
		c.Fail("violations", "must be empty when is_valid is true", r.Violations)
	}
	c.Strings("violations", r.Violations)
	c.NotBlank("rationale.reasoning_summary", r.Rationale.ReasoningSummary)
	return c.Err()
}

// Clone returns a deep copy of the verdict.
func (r *RefereeOutput) Clone() *RefereeOutput {
	if r == nil {
		return nil
	}
	next := *r
	if r.Violations != nil {
		next.Violations = append(make([]string, 0, len(r.Violations)), r.Violations...)
	}
	return &next
}

// HasViolation reports whether tag is among the verdict's violations.
func (r *RefereeOutput) HasViolation(tag string) bool {
	for _, v := range r.Violations {
		if v == tag {
			return true
		}
	}
	return false
}

// FallbackReferee is substituted when the REFEREE evaluator fails.
// It never passes the chain: a broken referee sends the run into the retry path.
func FallbackReferee() *RefereeOutput {
	return refereeFault(ViolationRefereeFailed, "referee evaluation unavailable")
}

// FaultDecision builds the verdict recorded when a run is aborted by a fault.
func FaultDecision(tag, summary string) *RefereeOutput {
	return refereeFault(tag, summary)
}

func refereeFault(tag, summary string) *RefereeOutput {
	return &RefereeOutput{
		IsValid:    false,
		Violations: []string{tag},
		Rationale:  Rationale{ReasoningSummary: summary},
	}
}
