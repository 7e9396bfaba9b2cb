package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrEmptyScorecard   = errors.New("empty scorecard")
	ErrUnknownCriterion = errors.New("unknown criterion")
	ErrScoreOutOfRange  = errors.New("score out of range")
)
