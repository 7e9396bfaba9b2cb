package rubric

import "errors"

// Sentinel kinds for rubric errors.
var (
	ErrInvalidRubric = errors.New("invalid rubric")
	ErrLoadRubric    = errors.New("load rubric failed")
)
