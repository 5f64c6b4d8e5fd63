package domain

// Violation tags emitted by the referee, or by the engine on its behalf.
const (
	ViolationFeedbackMisaligned = "feedback_misaligned_with_transcript"
	ViolationPlannerIgnored     = "planner_ignored_feedback"
	ViolationWordsOffTopic      = "new_words_off_topic"
	ViolationChainIncoherent    = "chain_incoherent"

	// ViolationRefereeFailed marks the fallback verdict of a failed referee call.
	ViolationRefereeFailed = "referee_agent_failed"
	// ViolationExecutionFailed marks a run aborted by a recovered engine fault.
	ViolationExecutionFailed = "workflow_execution_failed"
	// ViolationCanceled marks a run aborted by context cancellation.
	ViolationCanceled = "workflow_canceled"
)
