package command

import "errors"

// Domain-specific errors for command dispatch.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNoHandler is returned when no handler is registered for a
	// mapping's target type.
	ErrNoHandler = errors.New("command: no handler for target type")

	// ErrDispatchFailed is returned when the single publish attempt for
	// a command fails. The failure is isolated: other commands from the
	// same event still dispatch.
	ErrDispatchFailed = errors.New("command: dispatch failed")
)
