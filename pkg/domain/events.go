package domain

import (
	"context"
	"time"
)

// StageEvent describes a stage entering or leaving.
type StageEvent struct {
	RunID     string    `json:"run_id"`
	UserID    string    `json:"user_id"`
	Stage     Stage     `json:"stage"`
	Visit     int       `json:"visit"` // 1 for the straight-line pass
	Timestamp time.Time `json:"timestamp"`

	// Set on leave only.
	Duration time.Duration     `json:"duration,omitempty"`
	Fallback bool              `json:"fallback,omitempty"`
	Failure  *EvaluatorFailure `json:"-"`
}

// RouteEvent describes one routing decision taken after a referee verdict.
type RouteEvent struct {
	RunID            string    `json:"run_id"`
	UserID           string    `json:"user_id"`
	RefereeVisit     int       `json:"referee_visit"`
	Proposed         Stage     `json:"proposed"`
	Target           Stage     `json:"target"`
	MatchedViolation string    `json:"matched_violation,omitempty"`
	Tripped          bool      `json:"tripped"`
	Reason           string    `json:"reason,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// RunEvent describes a finished run.
type RunEvent struct {
	RunID       string        `json:"run_id"`
	UserID      string        `json:"user_id"`
	Status      RunStatus     `json:"status"`
	Reason      string        `json:"reason,omitempty"`
	Invocations int           `json:"invocations"`
	Duration    time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for engine observability.
// Any field may be nil.
type LifecycleHooks struct {
	OnStageEnter  func(context.Context, *StageEvent)
	OnStageLeave  func(context.Context, *StageEvent)
	OnRoute       func(context.Context, *RouteEvent)
	OnRunComplete func(context.Context, *RunEvent)
}
