package event

import (
	"fmt"
	"time"
)

// Protocol versions carried in the Version field.
const (
	// VersionCanonical marks payloads in the current versioned format.
	VersionCanonical = "1.0"

	// VersionLegacy marks events synthesised from pre-versioned payloads.
	VersionLegacy = "legacy"
)

// Well-known origins. Device-produced events carry the device identifier
// or firmware origin tag instead.
const (
	// OriginServer marks messages casacore itself published. Events with
	// this origin on a command topic are echoes and must never re-enter
	// the pipeline.
	OriginServer = "server"

	// OriginLegacy is assigned when a legacy payload carries no origin
	// hint and none can be inferred from the topic.
	OriginLegacy = "legacy"

	// OriginAPI marks events injected through the HTTP API.
	OriginAPI = "api"
)

// Action identifies what the device reported.
type Action string

// Valid actions.
const (
	ActionPress       Action = "press"
	ActionRelease     Action = "release"
	ActionToggle      Action = "toggle"
	ActionStateReport Action = "state-report"
)

// Valid reports whether the action is one of the recognised values.
func (a Action) Valid() bool {
	switch a {
	case ActionPress, ActionRelease, ActionToggle, ActionStateReport:
		return true
	}
	return false
}

// Event is the canonical form every inbound payload normalises to.
//
// Events are immutable after creation. ReceivedAt is server-assigned and
// authoritative for ordering; Timestamp is device-reported and untrusted
// (device clocks drift and some firmware omits it entirely).
type Event struct {
	// Version is the protocol version tag ("1.0" or "legacy").
	Version string `json:"version"`

	// Device identifies the source device (e.g. "Base_D", "L_Sala").
	Device string `json:"device"`

	// Button identifies the pressed switch (e.g. "S1"). Empty for
	// state-only events.
	Button string `json:"button,omitempty"`

	// Action is what happened: press, release, toggle, or state-report.
	Action Action `json:"action"`

	// Timestamp is the device-reported time, if any.
	Timestamp *time.Time `json:"timestamp,omitempty"`

	// ReceivedAt is when the server first saw the payload.
	ReceivedAt time.Time `json:"received_at"`

	// Origin is who produced the event: a device id, "server",
	// "legacy", or "api".
	Origin string `json:"origin,omitempty"`

	// RSSI is the WiFi signal strength reported by the device, if any.
	RSSI *int `json:"rssi,omitempty"`
}

// ID derives the deterministic identity used for duplicate suppression.
//
// The identity is device_button_action@bucket where bucket is ReceivedAt
// truncated to the dedup window. Broker redelivery of the same physical
// press lands in the same bucket and collapses to one identity; the same
// button pressed again after the window produces a fresh one.
func (e *Event) ID(window time.Duration) string {
	bucket := e.ReceivedAt
	if window > 0 {
		bucket = bucket.Truncate(window)
	}
	return fmt.Sprintf("%s_%s_%s@%d", e.Device, e.Button, e.Action, bucket.UnixMilli())
}

// Validate checks the event carries enough identity to be processed.
func (e *Event) Validate() error {
	if e.Device == "" {
		return fmt.Errorf("%w: missing device", ErrUnrecognizedPayload)
	}
	if !e.Action.Valid() {
		return fmt.Errorf("%w: invalid action %q", ErrUnrecognizedPayload, e.Action)
	}
	return nil
}
