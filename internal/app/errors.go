package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound        = errors.New("not found")
	ErrNoActiveBoard   = errors.New("no active board")
	ErrColumnNotFound  = errors.New("column not found")
	ErrTaskMismatch    = errors.New("task does not match source position")
	ErrInvalidMode     = errors.New("invalid update mode")
	ErrStateNotEmpty   = errors.New("board state is not empty")
	ErrInvalidSeed     = errors.New("invalid seed")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	ErrInvariantBroken = errors.New("board invariant violated")
	// ErrTaskNotOnActiveBoard marks a task operation naming a task that lives on another board.
	// Task operations apply to the active board only.
	ErrTaskNotOnActiveBoard = errors.New("task is not on the active board")
)
