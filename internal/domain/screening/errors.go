package screening

import "errors"

// Sentinel kinds for screening errors.
var (
	ErrUnknownFlag     = errors.New("unknown flag code")
	ErrInvalidDecision = errors.New("invalid screening decision")
)
