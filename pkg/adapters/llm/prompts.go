package llm

import "github.com/aretw0/freelingo/pkg/domain"

// Prompts holds the system prompt of each stage. Empty fields keep the default.
type Prompts struct {
	Feedback string `koanf:"feedback"`
	Planner  string `koanf:"planner"`
	Words    string `koanf:"words"`
	Referee  string `koanf:"referee"`
}

// DefaultPrompts returns the built-in stage prompts.
func DefaultPrompts() Prompts {
	return Prompts{
		Feedback: `You review a language lesson. The input is a JSON object with the transcript of tutor/learner turns and the learner's known words.
Reply with one JSON object: {"strengths": [string], "mistakes": [{"kind": "grammar"|"word_choice"|"word_order", "evidence": string, "fix_hint": string, "fix_hint_translation": string, "priority": 1-3}], "conversation_examples": [{"word": string, "sentence": string, "translation": string}]}.
Quote evidence verbatim from the learner's turns. At most 3 mistakes. If referee_feedback is present, fix what it reports.`,
		Planner: `You plan the learner's next session. The input holds the feedback of the last session and the known words.
Reply with one JSON object: {"session_objectives": [string], "vocab_gaps": [string]}.
Every mistake in the feedback must be addressed by an objective. If referee_feedback is present, fix what it reports.`,
		Words: `You pick new vocabulary for the learner. The input holds the plan, the feedback and the known words.
Reply with one JSON object: {"new_words": [string], "usages": {"<word>": {"sentence": string, "translation": string}}}.
Suggest at most 5 words, none of them known, each serving the plan. If referee_feedback is present, fix what it reports.`,
		Referee: `You check that a tutoring report is internally consistent. The input holds the transcript, known and allowed words, feedback, plan and new words.
Reply with one JSON object: {"is_valid": bool, "violations": [string], "rationale": {"reasoning_summary": string, "chain_checks": {"feedback_transcript_alignment": bool, "planner_feedback_incorporation": bool, "new_words_plan_alignment": bool, "overall_chain_coherence": bool}}}.
Use only these violation tags: feedback_misaligned_with_transcript, planner_ignored_feedback, new_words_off_topic, chain_incoherent. is_valid is true only with no violations.`,
	}
}

func (p Prompts) merge(over Prompts) Prompts {
	if over.Feedback != "" {
		p.Feedback = over.Feedback
	}
	if over.Planner != "" {
		p.Planner = over.Planner
	}
	if over.Words != "" {
		p.Words = over.Words
	}
	if over.Referee != "" {
		p.Referee = over.Referee
	}
	return p
}

func (p Prompts) of(stage domain.Stage) string {
	switch stage {
	case domain.StageFeedback:
		return p.Feedback
	case domain.StagePlanner:
		return p.Planner
	case domain.StageWords:
		return p.Words
	default:
		return p.Referee
	}
}
