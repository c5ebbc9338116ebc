package mapping

import (
	"fmt"

	"github.com/opencasa/casa-core/internal/event"
)

// ValidateMapping checks a mapping is structurally sound before persisting.
//
// Source fields must be non-empty; the wildcard "*" stands for "any value".
// Action must be a recognised action or the wildcard. Target fields are
// always concrete: wildcards make no sense on the output side.
func ValidateMapping(m *Mapping) error {
	if m.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidMapping)
	}
	if m.Device == "" {
		return fmt.Errorf("%w: device is required (use %q to match any)", ErrInvalidMapping, Wildcard)
	}
	if m.Button == "" {
		return fmt.Errorf("%w: button is required (use %q to match any)", ErrInvalidMapping, Wildcard)
	}
	if m.Action == "" {
		return fmt.Errorf("%w: action is required", ErrInvalidMapping)
	}
	if m.Action != Wildcard && !event.Action(m.Action).Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidMapping, m.Action)
	}
	if !m.TargetType.Valid() {
		return fmt.Errorf("%w: unknown target type %q", ErrInvalidMapping, m.TargetType)
	}
	if m.TargetID == "" || m.TargetID == Wildcard {
		return fmt.Errorf("%w: target id must be concrete", ErrInvalidMapping)
	}
	if m.Command == "" {
		return fmt.Errorf("%w: command is required", ErrInvalidMapping)
	}
	if m.Priority < 0 {
		return fmt.Errorf("%w: priority must not be negative", ErrInvalidMapping)
	}
	return nil
}
