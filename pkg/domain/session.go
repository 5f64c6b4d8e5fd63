package domain

import "time"

// Role identifies the speaker of a dialogue message.
type Role string

const (
	RoleAI      Role = "ai"
	RoleLearner Role = "learner"
)

// IsValid reports whether r is one of the two dialogue speakers.
func (r Role) IsValid() bool {
	return r == RoleAI || r == RoleLearner
}

// Word is a vocabulary entry the learner already knows.
type Word struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Word        string `json:"word" yaml:"word"`
	Translation string `json:"translation,omitempty" yaml:"translation,omitempty"`
	Example     string `json:"example,omitempty" yaml:"example,omitempty"`
}

// Message is one entry of the live dialogue history.
type Message struct {
	Role Role   `json:"role" yaml:"role"`
	Text string `json:"text" yaml:"text"`
	// Rationale carries the tutor's structured reasoning for AI messages, if any.
	Rationale string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// SessionRecord is the mutable per-user record kept by a SessionRepository.
// The pipeline never sees it directly; it consumes a SessionSnapshot instead.
type SessionRecord struct {
	UserID          string    `json:"user_id" yaml:"user_id"`
	KnownWords      []Word    `json:"known_words" yaml:"known_words"`
	DialogueHistory []Message `json:"dialogue_history" yaml:"dialogue_history"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"updated_at,omitempty"`
	// Sealed holds the ciphertext of the whole record when the repository encrypts at rest.
	// Sealed records keep only UserID and UpdatedAt in clear.
	Sealed []byte `json:"sealed,omitempty" yaml:"-"`
}

// NewSessionRecord creates an empty record for a user.
func NewSessionRecord(userID string) *SessionRecord {
	return &SessionRecord{
		UserID:          userID,
		KnownWords:      []Word{},
		DialogueHistory: []Message{},
	}
}

// Snapshot copies the record into an immutable SessionSnapshot.
func (r *SessionRecord) Snapshot(at time.Time) SessionSnapshot {
	return SessionSnapshot{
		UserID:          r.UserID,
		KnownWords:      append([]Word(nil), r.KnownWords...),
		DialogueHistory: append([]Message(nil), r.DialogueHistory...),
		CapturedAt:      at,
	}
}

// Clone returns a deep copy of the record.
func (r *SessionRecord) Clone() *SessionRecord {
	if r == nil {
		return nil
	}
	next := *r
	next.KnownWords = append([]Word{}, r.KnownWords...)
	next.DialogueHistory = append([]Message{}, r.DialogueHistory...)
	if r.Sealed != nil {
		next.Sealed = append([]byte(nil), r.Sealed...)
	}
	return &next
}

// SessionSnapshot is the read-only view of a learner session captured before a run.
type SessionSnapshot struct {
	UserID          string    `json:"user_id" yaml:"user_id"`
	KnownWords      []Word    `json:"known_words" yaml:"known_words"`
	DialogueHistory []Message `json:"dialogue_history,omitempty" yaml:"dialogue_history,omitempty"`
	CapturedAt      time.Time `json:"captured_at,omitempty" yaml:"captured_at,omitempty"`
}

// KnownWordList returns the bare word strings, in snapshot order.
func (s SessionSnapshot) KnownWordList() []string {
	words := make([]string, 0, len(s.KnownWords))
	for _, w := range s.KnownWords {
		words = append(words, w.Word)
	}
	return words
}

// Clone returns a deep copy so callers can't mutate a running snapshot.
func (s SessionSnapshot) Clone() SessionSnapshot {
	s.KnownWords = append([]Word(nil), s.KnownWords...)
	s.DialogueHistory = append([]Message(nil), s.DialogueHistory...)
	return s
}
