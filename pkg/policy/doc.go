// Package policy holds the pure decision logic that steers a run after each referee verdict.
//
// Router maps a verdict to the next stage with a fixed, ordered rule table.
// CircuitBreaker caps how often a run may loop back so that every run terminates.
// Neither type mutates a WorkflowState; the engine applies their decisions.
package policy
