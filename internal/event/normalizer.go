package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Normalize converts a raw inbound payload into a canonical Event.
//
// Three payload families are recognised:
//
//  1. Versioned JSON (carries a "v" field): button events
//     {"v":"1.0","device":"Base_D","button":"S1","action":"press",...}
//     and state confirmations {"v":"1.0","comodo":"L_Cozinha","state":"ON",...}.
//
//  2. Legacy JSON (Portuguese field names, no "v"): button events
//     {"base":"Base_A1","botao":"S_Entrada","estado":"pressionado"} and
//     state messages {"comodo":"L_Sala","state":"ON"}.
//
//  3. Raw strings from the oldest firmware: "L_Sala:ON", "Base_A,B1,press",
//     "L_Cozinha,OFF". Parsed into the legacy shape first.
//
// The topic is used only as a hint when a legacy payload carries no origin
// field. Normalize performs no I/O and is safe for concurrent use.
//
// Payloads matching no family, or missing identity fields, return
// ErrUnrecognizedPayload. ReceivedAt is always set to the current time.
func Normalize(payload []byte, topic string) (*Event, error) {
	raw := strings.TrimSpace(string(payload))
	if raw == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrUnrecognizedPayload)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		// Valid JSON that isn't an object (arrays, numbers) is nothing
		// any firmware generation sends.
		if json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("%w: JSON payload is not an object", ErrUnrecognizedPayload)
		}
		// Not JSON at all. The oldest firmware sends bare strings.
		fields = parseRawString(raw)
		if fields == nil {
			return nil, fmt.Errorf("%w: not JSON and not a known raw format: %q", ErrUnrecognizedPayload, raw)
		}
	}

	var (
		e   *Event
		err error
	)
	if version, ok := stringField(fields, "v"); ok && version != "" {
		e, err = normalizeVersioned(version, fields)
	} else {
		e, err = normalizeLegacy(fields, topic)
	}
	if err != nil {
		return nil, err
	}

	e.ReceivedAt = time.Now().UTC()
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// normalizeVersioned handles payloads that declare a protocol version.
// Two shapes exist: button events keyed on "device" and state
// confirmations keyed on "comodo".
func normalizeVersioned(version string, fields map[string]any) (*Event, error) {
	if device, ok := stringField(fields, "device"); ok {
		actionRaw, _ := stringField(fields, "action")
		action, ok := parseAction(actionRaw)
		if !ok {
			return nil, fmt.Errorf("%w: unknown action %q", ErrUnrecognizedPayload, actionRaw)
		}
		button, _ := stringField(fields, "button")
		origin, _ := stringField(fields, "origin")

		return &Event{
			Version:   version,
			Device:    device,
			Button:    button,
			Action:    action,
			Timestamp: timestampField(fields),
			Origin:    origin,
			RSSI:      intField(fields, "rssi"),
		}, nil
	}

	if comodo, ok := stringField(fields, "comodo"); ok {
		origin, _ := stringField(fields, "origin")

		return &Event{
			Version:   version,
			Device:    comodo,
			Action:    ActionStateReport,
			Timestamp: timestampField(fields),
			Origin:    origin,
		}, nil
	}

	return nil, fmt.Errorf("%w: versioned payload without device or comodo", ErrUnrecognizedPayload)
}

// normalizeLegacy handles pre-versioned payloads.
//
// Detection order follows the deployed firmware:
//  1. base/device/dispositivo + botao/button is a button event
//  2. comodo + state/estado is a lamp state message
//  3. a bare action/acao field still counts as a button event
func normalizeLegacy(fields map[string]any, topic string) (*Event, error) {
	device, hasDevice := stringField(fields, "base", "device", "dispositivo")
	button, hasButton := stringField(fields, "button", "botao")

	if hasDevice && hasButton {
		return legacyButtonEvent(device, button, fields), nil
	}

	if comodo, ok := stringField(fields, "comodo"); ok {
		if _, hasState := stringField(fields, "state", "estado"); hasState {
			return legacyStateEvent(comodo, fields, topic), nil
		}
	}

	if _, hasAction := stringField(fields, "action", "acao"); hasAction {
		if !hasDevice {
			device = deviceFromTopic(topic)
		}
		return legacyButtonEvent(device, button, fields), nil
	}

	return nil, fmt.Errorf("%w: no known legacy shape", ErrUnrecognizedPayload)
}

// legacyButtonEvent synthesises a canonical button event from legacy fields.
func legacyButtonEvent(device, button string, fields map[string]any) *Event {
	actionRaw, ok := stringField(fields, "action", "acao")
	if !ok {
		// ESP wall bases report the switch state in Portuguese.
		switch estado, _ := stringField(fields, "estado"); estado {
		case "pressionado":
			actionRaw = "press"
		case "solto":
			actionRaw = "release"
		default:
			actionRaw = "press"
		}
	}

	action, ok := parseAction(actionRaw)
	if !ok {
		// Old firmware occasionally sends junk action values. Treat as
		// a press rather than dropping a physical button event.
		action = ActionPress
	}

	return &Event{
		Version:   VersionLegacy,
		Device:    device,
		Button:    button,
		Action:    action,
		Timestamp: timestampField(fields),
		Origin:    OriginLegacy,
	}
}

// legacyStateEvent synthesises a state-report event from a legacy
// {comodo, state} message.
func legacyStateEvent(comodo string, fields map[string]any, topic string) *Event {
	origin, ok := stringField(fields, "device", "dispositivo", "origin")
	if !ok {
		origin = originFromTopic(topic)
	}

	return &Event{
		Version:   VersionLegacy,
		Device:    comodo,
		Action:    ActionStateReport,
		Timestamp: timestampField(fields),
		Origin:    origin,
	}
}

// parseRawString parses bare string payloads from the oldest firmware.
//
// Supported formats:
//
//	"L_Sala:ON"        -> {"comodo":"L_Sala","state":"ON"}
//	"Base_A,B1,press"  -> {"device":"Base_A","button":"B1","action":"press"}
//	"L_Cozinha,OFF"    -> {"comodo":"L_Cozinha","state":"OFF"}
//
// Returns nil when the string matches none of them.
func parseRawString(raw string) map[string]any {
	if strings.Contains(raw, ":") {
		parts := strings.SplitN(raw, ":", 2)
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			return map[string]any{
				"comodo": strings.TrimSpace(parts[0]),
				"state":  strings.TrimSpace(parts[1]),
			}
		}
		return nil
	}

	if strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch len(parts) {
		case 3:
			return map[string]any{
				"device": parts[0],
				"button": parts[1],
				"action": parts[2],
			}
		case 2:
			return map[string]any{
				"comodo": parts[0],
				"state":  parts[1],
			}
		}
	}

	return nil
}

// parseAction maps wire action strings onto the canonical enum.
// "changed" is the old firmware's name for toggle.
func parseAction(raw string) (Action, bool) {
	switch strings.ToLower(raw) {
	case "press":
		return ActionPress, true
	case "release":
		return ActionRelease, true
	case "toggle", "changed":
		return ActionToggle, true
	case "state-report":
		return ActionStateReport, true
	}
	return "", false
}

// deviceFromTopic extracts a device name from the topic path.
func deviceFromTopic(topic string) string {
	if topic == "" {
		return ""
	}
	parts := strings.Split(topic, "/")
	for _, part := range parts {
		lower := strings.ToLower(part)
		if strings.Contains(lower, "base") || strings.Contains(lower, "esp") {
			return part
		}
	}
	return parts[len(parts)-1]
}

// originFromTopic infers the publishing device from a state topic such as
// casa/estado/lampada/Base_A. Falls back to the legacy origin marker.
func originFromTopic(topic string) string {
	const minSegments = 4
	parts := strings.Split(topic, "/")
	if len(parts) >= minSegments {
		return parts[len(parts)-1]
	}
	return OriginLegacy
}

// stringField returns the first present non-empty string among keys.
func stringField(fields map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := fields[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// intField returns the named field as an int pointer, if numeric.
func intField(fields map[string]any, key string) *int {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	i := int(f)
	return &i
}

// timestampField parses the device-reported "ts" field. Device clocks are
// untrusted so parse failures simply yield nil.
func timestampField(fields map[string]any) *time.Time {
	raw, ok := stringField(fields, "ts")
	if !ok {
		return nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}
