package mapping

import "errors"

// Domain-specific errors for mapping operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrMappingNotFound is returned when a mapping does not exist.
	ErrMappingNotFound = errors.New("mapping: not found")

	// ErrMappingExists is returned when creating a mapping with an ID
	// that is already taken.
	ErrMappingExists = errors.New("mapping: already exists")

	// ErrInvalidMapping is returned when a mapping fails validation.
	ErrInvalidMapping = errors.New("mapping: invalid")
)
