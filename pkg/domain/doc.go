/*
Package domain contains the core domain models of the freelingo end-of-session pipeline.

It defines the records that flow through the agent chain: the read-only inputs
captured before a run (SessionSnapshot, Transcript), the closed output schemas
produced by each stage, and the WorkflowState owned by a single run. This package
is kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Stage: One of FEEDBACK, PLANNER, WORDS, REFEREE (plus the END route target).
  - SessionSnapshot: The learner's known words and dialogue history, copied once per run.
  - Transcript: The ordered (AI turn, learner turn) pairs of one session.
  - FeedbackOutput, PlanOutput, WordSuggestionOutput, RefereeOutput: Stage outputs.
  - WorkflowState: The mutable aggregate written by stage execution.
*/
package domain
