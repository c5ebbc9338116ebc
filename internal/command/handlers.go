package command

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/opencasa/casa-core/internal/infrastructure/mqtt"
	"github.com/opencasa/casa-core/internal/mapping"
)

// RegisterDefaultHandlers installs the wire handlers for every target
// type the device fleet understands, publishing on the configured topics.
func RegisterDefaultHandlers(p *Publisher, topics mqtt.Topics) {
	p.Register(mapping.TargetLight, LightHandler(topics))
	p.Register(mapping.TargetScene, SceneHandler(topics))
	p.Register(mapping.TargetGate, GateHandler(topics))
	p.Register(mapping.TargetNotification, NotificationHandler(topics))
}

// LightHandler builds lamp command payloads.
//
// Wire shape, consumed by the lamp controllers:
//
//	{"v":"1.0","comodo":"L_Cozinha","command":"toggle","origin":"server","trigger":"Base_D_S1_press@...","ts":"..."}
func LightHandler(topics mqtt.Topics) Handler {
	return func(cmd *Command) (string, []byte, error) {
		body := basePayload(cmd)
		body["comodo"] = cmd.TargetID

		payload, err := marshalPayload(body)
		return topics.LampCommand(), payload, err
	}
}

// SceneHandler builds scene activation payloads.
func SceneHandler(topics mqtt.Topics) Handler {
	return func(cmd *Command) (string, []byte, error) {
		body := basePayload(cmd)
		body["cena"] = cmd.TargetID

		payload, err := marshalPayload(body)
		return topics.Scene(), payload, err
	}
}

// GateHandler builds pulse-sequence payloads for the gate controller.
//
// The target device is implied by the topic; the pulse count and duration
// come from the mapping's parameters:
//
//	{"v":"1.0","command":"pulse_sequence","pulses":8,"pulse_ms":1000,"origin":"server","ts":"..."}
func GateHandler(topics mqtt.Topics) Handler {
	return func(cmd *Command) (string, []byte, error) {
		body := basePayload(cmd)

		payload, err := marshalPayload(body)
		return topics.GateCommand(), payload, err
	}
}

// NotificationHandler builds notification fan-out payloads.
func NotificationHandler(topics mqtt.Topics) Handler {
	return func(cmd *Command) (string, []byte, error) {
		body := basePayload(cmd)
		body["destino"] = cmd.TargetID

		payload, err := marshalPayload(body)
		return topics.Notification(), payload, err
	}
}

// basePayload builds the fields every command payload carries, with the
// command's parameters merged in. Parameters never override the protocol
// fields.
func basePayload(cmd *Command) map[string]any {
	body := make(map[string]any, len(cmd.Parameters)+5)
	for k, v := range cmd.Parameters {
		body[k] = v
	}
	body["v"] = cmd.Version
	body["command"] = cmd.Type
	body["origin"] = cmd.Origin
	body["ts"] = cmd.Timestamp.Format(time.RFC3339)
	if cmd.TriggeredBy != "" {
		body["trigger"] = cmd.TriggeredBy
	}
	return body
}

func marshalPayload(body map[string]any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshalling command payload: %w", err)
	}
	return payload, nil
}
