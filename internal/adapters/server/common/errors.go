package common

import "errors"

// ErrInvalidRequest reports malformed or rejected input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrConflict reports requests that do not fit the current board state.
var ErrConflict = errors.New("conflict")

// ErrorCode is the stable machine-readable error class shared by every transport.
type ErrorCode string

// Error codes reported by the REST and MCP adapters.
const (
	CodeInvalidRequest ErrorCode = "invalid_request"
	CodeNotFound       ErrorCode = "not_found"
	CodeConflict       ErrorCode = "conflict"
	CodeInternal       ErrorCode = "internal_error"
)

// CodeOf classifies err. Unknown errors, and nil, are internal.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return CodeInternal
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrConflict):
		return CodeConflict
	default:
		return CodeInternal
	}
}
