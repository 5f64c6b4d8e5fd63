package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when no session record exists for a user.
var ErrSessionNotFound = errors.New("session not found")

// ErrEvaluatorNotConfigured is returned by an evaluator that has no implementation for a stage.
var ErrEvaluatorNotConfigured = errors.New("evaluator not configured")

// ErrMalformedOutput is wrapped by evaluators whose answer could not be decoded.
// The engine counts it as a schema failure rather than a transport failure.
var ErrMalformedOutput = errors.New("malformed evaluator output")

// FailureKind classifies why an evaluator call did not produce a usable output.
type FailureKind string

const (
	FailureTransport FailureKind = "transport"
	FailureTimeout   FailureKind = "timeout"
	FailureSchema    FailureKind = "schema"
	FailurePanic     FailureKind = "panic"
)

// EvaluatorFailure describes a failed stage evaluation.
// The engine recovers from it by substituting the stage fallback.
type EvaluatorFailure struct {
	Stage Stage
	Kind  FailureKind
	Err   error
}

func (e *EvaluatorFailure) Error() string {
	return fmt.Sprintf("%s evaluator %s failure: %v", e.Stage, e.Kind, e.Err)
}

func (e *EvaluatorFailure) Unwrap() error {
	return e.Err
}
