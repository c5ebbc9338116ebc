package event

import "errors"

// Domain-specific errors for payload normalization.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnrecognizedPayload is returned when a payload matches neither
	// the versioned format nor any known legacy shape, or is missing
	// identity fields. Callers drop and log the payload; this error is
	// never fatal to the pipeline.
	ErrUnrecognizedPayload = errors.New("event: unrecognized payload")
)
