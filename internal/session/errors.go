package session

import "errors"

// Sentinel errors for store operations, checked with errors.Is().
var (
	// ErrEmptyKey indicates a missing tenant or user identifier.
	ErrEmptyKey = errors.New("empty session key")

	// ErrInvalidTurn indicates a turn with no role or empty text.
	ErrInvalidTurn = errors.New("invalid turn")
)
