package command

import (
	"time"

	"github.com/google/uuid"

	"github.com/opencasa/casa-core/internal/mapping"
)

// Version is the protocol version stamped on every outbound command.
const Version = "1.0"

// Origin is the marker stamped on every command casacore publishes.
// The ingest listener drops inbound command-topic messages carrying it,
// which is what keeps commands from re-entering the pipeline as events.
const Origin = "server"

// Command is one outbound instruction to a target device or service.
//
// Commands are built from a resolved mapping and the event that triggered
// it, then handed to a per-target-type handler that maps them onto a
// topic and wire payload.
type Command struct {
	// ID uniquely identifies this command instance.
	ID string `json:"id"`

	// Version is the protocol version ("1.0").
	Version string `json:"v"`

	// TargetID names the device or service being commanded
	// (e.g. "L_Cozinha", "cena_cinema").
	TargetID string `json:"target_id"`

	// Type is the command verb (e.g. "toggle", "on", "pulse_sequence").
	Type string `json:"command"`

	// Parameters carries command arguments from the mapping.
	Parameters mapping.Params `json:"parameters,omitempty"`

	// Origin is always "server" for commands this service publishes.
	Origin string `json:"origin"`

	// TriggeredBy is the identity of the event that caused this command,
	// or empty for commands issued directly through the API.
	TriggeredBy string `json:"trigger,omitempty"`

	// Timestamp is when the command was built.
	Timestamp time.Time `json:"ts"`
}

// New builds a command from a resolved mapping.
// The triggeredBy argument is the triggering event's identity; pass the
// empty string for direct API commands.
func New(m *mapping.Mapping, triggeredBy string) *Command {
	return &Command{
		ID:          uuid.New().String(),
		Version:     Version,
		TargetID:    m.TargetID,
		Type:        m.Command,
		Parameters:  m.Parameters.DeepCopy(),
		Origin:      Origin,
		TriggeredBy: triggeredBy,
		Timestamp:   time.Now().UTC(),
	}
}
