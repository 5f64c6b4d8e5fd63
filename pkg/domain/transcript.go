package domain

import "strings"

// AITurn is the tutor side of a transcript turn.
type AITurn struct {
	Reply     string `json:"reply" yaml:"reply"`
	WordCount int    `json:"word_count" yaml:"word_count"`
	Rationale string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// UserTurn is the learner side of a transcript turn.
type UserTurn struct {
	Text string `json:"text" yaml:"text"`
}

// Turn pairs a tutor message with the learner's answer to it.
type Turn struct {
	AI   AITurn   `json:"ai_turn" yaml:"ai_turn"`
	User UserTurn `json:"user_turn" yaml:"user_turn"`
}

// Transcript is the ordered record of one learning session.
type Transcript struct {
	Turns []Turn `json:"transcript" yaml:"transcript"`
}

// Len returns the number of turns.
func (t Transcript) Len() int {
	return len(t.Turns)
}

// Clone returns a copy whose turn slice is independent of t.
func (t Transcript) Clone() Transcript {
	return Transcript{Turns: append([]Turn(nil), t.Turns...)}
}

// BuildTranscript pairs each AI message with the learner message that follows it.
//
// A leading learner message with empty text (the UI trigger that opens the
// conversation) is skipped. Consecutive AI messages each start their own turn;
// an AI message with no answer yields a turn with empty learner text. Learner
// messages with no preceding AI message are attached to an empty AI turn.
func BuildTranscript(history []Message) Transcript {
	turns := make([]Turn, 0, len(history)/2+1)
	var pending *Turn
	seenContent := false

	flush := func() {
		if pending != nil {
			turns = append(turns, *pending)
			pending = nil
		}
	}

	for _, msg := range history {
		switch msg.Role {
		case RoleAI:
			flush()
			pending = &Turn{AI: AITurn{
				Reply:     msg.Text,
				WordCount: len(strings.Fields(msg.Text)),
				Rationale: msg.Rationale,
			}}
			seenContent = true
		case RoleLearner:
			if !seenContent && strings.TrimSpace(msg.Text) == "" {
				continue
			}
			seenContent = true
			if pending == nil {
				pending = &Turn{}
			}
			pending.User = UserTurn{Text: msg.Text}
			flush()
		}
	}
	flush()

	return Transcript{Turns: turns}
}
