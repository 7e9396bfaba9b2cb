package service

import "errors"

// Sentinel error kinds for this package. The HTTP layer maps these onto
// status codes, so every operation failure must wrap exactly one of them.
var (
	// ErrValidation marks structurally invalid input: unknown flag codes,
	// out-of-range scores, malformed decisions.
	ErrValidation = errors.New("validation failed")

	// ErrPermission marks a reviewer acting outside their capabilities.
	ErrPermission = errors.New("permission denied")

	// ErrNotFound marks a reference to a submission or record that does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrState marks an operation that is valid in itself but not in the
	// submission's current status, e.g. scoring outside the open phase.
	ErrState = errors.New("invalid state")

	// ErrBackpressure marks intake rejected because the check queue is
	// full. Callers should retry later.
	ErrBackpressure = errors.New("intake backpressure")
)
