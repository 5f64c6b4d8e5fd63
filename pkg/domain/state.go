package domain

import "time"

// RunStatus describes how far a run got and why it stopped.
type RunStatus string

const (
	RunRunning        RunStatus = "running"
	// RunValidated means the referee accepted the chain.
	RunValidated      RunStatus = "validated"
	// RunBreakerTripped means a retry budget ran out before acceptance.
	RunBreakerTripped RunStatus = "breaker_tripped"
	// RunDegraded means the graph was unavailable and the stages ran once without routing.
	RunDegraded       RunStatus = "degraded"
	// RunCanceled means the context ended mid-run.
	RunCanceled       RunStatus = "canceled"
	// RunFailed means an engine fault was recovered.
	RunFailed         RunStatus = "failed"
)

// IsTerminal reports whether the status ends a run.
func (s RunStatus) IsTerminal() bool {
	return s != RunRunning && s != ""
}

// WorkflowState is the aggregate record owned by a single run.
//
// Stages replace their output field wholesale; RefereeHistory and
// StateTransitions are append-only. Callers receive the state once the run
// has terminated and must treat it as read-only.
type WorkflowState struct {
	RunID      string          `json:"run_id"`
	UserID     string          `json:"user_id"`
	Snapshot   SessionSnapshot `json:"-"`
	Transcript Transcript      `json:"-"`

	CurrentStage Stage `json:"current_stage"`

	LastFeedback        *FeedbackOutput       `json:"last_feedback"`
	LastPlan            *PlanOutput           `json:"last_plan"`
	LastWords           *WordSuggestionOutput `json:"last_words"`
	LastRefereeDecision *RefereeOutput        `json:"last_referee_decision"`

	RefereeHistory   []RefereeOutput `json:"referee_history"`
	StateTransitions []Stage         `json:"state_transitions"`
	AgentRetryCount  map[Stage]int   `json:"agent_retry_count"`

	// NextStage is the router's latest decision.
	NextStage Stage `json:"next_stage,omitempty"`

	Status            RunStatus `json:"status"`
	TerminationReason string    `json:"termination_reason,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}

// NewWorkflowState creates the state for a fresh run.
// The snapshot and transcript are copied so the run cannot observe later writes.
func NewWorkflowState(runID, userID string, snapshot SessionSnapshot, transcript Transcript) *WorkflowState {
	return &WorkflowState{
		RunID:            runID,
		UserID:           userID,
		Snapshot:         snapshot.Clone(),
		Transcript:       transcript.Clone(),
		RefereeHistory:   []RefereeOutput{},
		StateTransitions: []Stage{},
		AgentRetryCount:  make(map[Stage]int),
		Status:           RunRunning,
	}
}

// Enter records that stage s is starting.
func (s *WorkflowState) Enter(stage Stage) {
	s.StateTransitions = append(s.StateTransitions, stage)
	s.CurrentStage = stage
}

// Visits counts how many times stage has been entered.
func (s *WorkflowState) Visits(stage Stage) int {
	n := 0
	for _, st := range s.StateTransitions {
		if st == stage {
			n++
		}
	}
	return n
}

// Invocations is the total number of stage executions so far.
func (s *WorkflowState) Invocations() int {
	return len(s.StateTransitions)
}

// Retries returns the number of retry routes taken to stage.
func (s *WorkflowState) Retries(stage Stage) int {
	return s.AgentRetryCount[stage]
}

// Validated reports whether the run ended with the referee accepting the chain.
func (s *WorkflowState) Validated() bool {
	return s.Status == RunValidated && s.LastRefereeDecision != nil && s.LastRefereeDecision.IsValid
}

// Finish marks the run terminal. It is a no-op once a terminal status is set.
func (s *WorkflowState) Finish(status RunStatus, reason string, at time.Time) {
	if s.Status.IsTerminal() {
		return
	}
	s.Status = status
	s.TerminationReason = reason
	s.FinishedAt = at
}

// Duration is the wall time between start and finish.
func (s *WorkflowState) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
