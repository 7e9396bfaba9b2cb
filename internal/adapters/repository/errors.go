package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("conflicting state")
	ErrInvalidLimit = errors.New("invalid ranking limit")
)
