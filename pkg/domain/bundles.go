package domain

// RefereeNote summarises one earlier referee verdict for a retried stage.
type RefereeNote struct {
	Attempt    int      `json:"attempt"`
	Summary    string   `json:"summary"`
	Violations []string `json:"violations"`
}

// NotesFrom converts a referee history into retry notes, oldest first.
func NotesFrom(history []RefereeOutput) []RefereeNote {
	if len(history) == 0 {
		return nil
	}
	notes := make([]RefereeNote, 0, len(history))
	for i, h := range history {
		notes = append(notes, RefereeNote{
			Attempt:    i + 1,
			Summary:    h.Rationale.ReasoningSummary,
			Violations: append([]string{}, h.Violations...),
		})
	}
	return notes
}

// FeedbackBundle is what the FEEDBACK evaluator may see.
type FeedbackBundle struct {
	Transcript      []Turn        `json:"transcript"`
	KnownWords      []string      `json:"known_words"`
	RefereeFeedback []RefereeNote `json:"referee_feedback,omitempty"`
}

// PlannerBundle is what the PLANNER evaluator may see.
type PlannerBundle struct {
	KnownWords      []string       `json:"known_words"`
	Feedback        FeedbackOutput `json:"feedback"`
	RefereeFeedback []RefereeNote  `json:"referee_feedback,omitempty"`
}

// WordsBundle is what the WORDS evaluator may see.
type WordsBundle struct {
	KnownWords      []string       `json:"known_words"`
	Plan            PlanOutput     `json:"plan"`
	Feedback        FeedbackOutput `json:"feedback"`
	RefereeFeedback []RefereeNote  `json:"referee_feedback,omitempty"`
}

// RefereeBundle is what the REFEREE evaluator may see.
// AllowedWords is the known vocabulary extended with the suggested new words.
type RefereeBundle struct {
	Transcript   []Turn               `json:"transcript"`
	KnownWords   []string             `json:"known_words"`
	AllowedWords []string             `json:"allowed_words"`
	Feedback     FeedbackOutput       `json:"feedback"`
	Plan         PlanOutput           `json:"plan"`
	Words        WordSuggestionOutput `json:"words"`
}
