package domain

// Stage identifies a node of the agent chain.
type Stage string

const (
	StageFeedback Stage = "FEEDBACK"
	StagePlanner  Stage = "PLANNER"
	StageWords    Stage = "WORDS"
	StageReferee  Stage = "REFEREE"

	// StageEnd is a route target only; no stage function runs for it.
	StageEnd Stage = "END"
)

// ChainOrder is the straight-line order of the chain, entry first.
var ChainOrder = []Stage{StageFeedback, StagePlanner, StageWords, StageReferee}

// RetryableStages are the stages the referee may send a run back to.
var RetryableStages = []Stage{StageFeedback, StagePlanner, StageWords}

// IsValid reports whether s names one of the four executable stages.
func (s Stage) IsValid() bool {
	switch s {
	case StageFeedback, StagePlanner, StageWords, StageReferee:
		return true
	}
	return false
}

// IsRetryable reports whether s may be the target of a referee route.
func (s Stage) IsRetryable() bool {
	return s == StageFeedback || s == StagePlanner || s == StageWords
}

// PathLength returns how many stage invocations a run performs when it
// re-enters the chain at s and proceeds straight to the referee.
// It returns 0 for END and unknown stages.
func (s Stage) PathLength() int {
	for i, st := range ChainOrder {
		if st == s {
			return len(ChainOrder) - i
		}
	}
	return 0
}

func (s Stage) String() string {
	return string(s)
}
