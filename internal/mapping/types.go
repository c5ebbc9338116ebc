package mapping

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Wildcard matches any value in a mapping source field.
const Wildcard = "*"

// TargetType identifies what kind of target a mapping drives.
type TargetType string

// Valid target types.
const (
	TargetLight        TargetType = "light"
	TargetScene        TargetType = "scene"
	TargetGate         TargetType = "gate"
	TargetNotification TargetType = "notification"
)

// Valid reports whether the target type is recognised.
func (t TargetType) Valid() bool {
	switch t {
	case TargetLight, TargetScene, TargetGate, TargetNotification:
		return true
	}
	return false
}

// Params is a typed parameter bag attached to mappings and commands.
// Values are restricted to strings, numbers, and booleans; nested
// structures are rejected at decode time.
type Params map[string]any

// UnmarshalJSON decodes a params object and rejects non-scalar values.
func (p *Params) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding parameters: %w", err)
	}
	for key, value := range raw {
		switch value.(type) {
		case string, float64, bool:
		default:
			return fmt.Errorf("%w: parameter %q must be a string, number, or bool", ErrInvalidMapping, key)
		}
	}
	*p = raw
	return nil
}

// Merge returns a new bag with other's entries overriding p's.
// Neither input is modified.
func (p Params) Merge(other Params) Params {
	merged := make(Params, len(p)+len(other))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// DeepCopy returns an independent copy of the bag.
// Values are scalars so a key-by-key copy is sufficient.
func (p Params) DeepCopy() Params {
	if p == nil {
		return nil
	}
	cp := make(Params, len(p))
	for k, v := range p {
		cp[k] = v
	}
	return cp
}

// Mapping binds a physical button event to a target action.
//
// Device, Button, and Action are the source coordinates; each may be the
// wildcard "*". Lower Priority resolves first when several mappings match
// the same event. Disabled mappings never match.
type Mapping struct {
	ID          string     `json:"id"`
	Device      string     `json:"device"`
	Button      string     `json:"button"`
	Action      string     `json:"action"`
	TargetType  TargetType `json:"target_type"`
	TargetID    string     `json:"target_id"`
	Command     string     `json:"command"`
	Parameters  Params     `json:"parameters,omitempty"`
	Priority    int        `json:"priority"`
	Enabled     bool       `json:"enabled"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DeepCopy returns an independent copy of the mapping.
func (m *Mapping) DeepCopy() *Mapping {
	cp := *m
	cp.Parameters = m.Parameters.DeepCopy()
	return &cp
}

// GenerateID creates a new unique mapping identifier.
func GenerateID() string {
	return "map-" + uuid.New().String()
}
