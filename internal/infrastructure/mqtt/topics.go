package mqtt

import (
	"github.com/opencasa/casa-core/internal/infrastructure/config"
)

// Topics provides builders for the MQTT topics casacore talks on.
//
// Topic names come from configuration so an installation can rename them
// without code changes. The defaults match the topics the deployed ESP
// firmware already uses.
//
//	topics := mqtt.NewTopics(cfg.MQTT.Topics)
//	stateTopic := topics.LampState("sala")
//	// Returns: "casa/estado/lampada/sala"
type Topics struct {
	cfg config.MQTTTopicsConfig
}

// NewTopics creates a topic builder from the configured topic names.
func NewTopics(cfg config.MQTTTopicsConfig) Topics {
	return Topics{cfg: cfg}
}

// ButtonEvents returns the topic wall bases publish button events on.
//
// Example: casa/evento/botao
func (t Topics) ButtonEvents() string {
	return t.cfg.ButtonEvents
}

// LampState returns the per-room lamp state confirmation topic.
//
// Example: casa/estado/lampada/sala
func (t Topics) LampState(room string) string {
	return t.cfg.LampState + "/" + room
}

// AllLampStates returns a pattern matching every lamp state topic.
//
// Pattern: casa/estado/lampada/#
func (t Topics) AllLampStates() string {
	return t.cfg.LampState + "/#"
}

// LampCommand returns the topic server-issued lamp commands go out on.
// The ingest listener also watches this topic for command echoes.
//
// Example: casa/servidor/comando_lampada
func (t Topics) LampCommand() string {
	return t.cfg.LampCommand
}

// WebCommand returns the topic the web dashboard publishes commands on.
//
// Example: casa/servidor_web/comando_lampada
func (t Topics) WebCommand() string {
	return t.cfg.WebCommand
}

// GateCommand returns the topic for pulse-sequence gate commands.
//
// Example: casa/esp/acionar_lampada
func (t Topics) GateCommand() string {
	return t.cfg.GateCommand
}

// Scene returns the topic for scene activation commands.
//
// Example: casa/servidor/cena
func (t Topics) Scene() string {
	return t.cfg.Scene
}

// Notification returns the topic for notification fan-out.
//
// Example: casa/servidor/notificacao
func (t Topics) Notification() string {
	return t.cfg.Notification
}

// SystemStatus returns the server online/offline status topic.
// The Last Will and Testament is registered here.
//
// Example: casa/sistema/status
func (t Topics) SystemStatus() string {
	return t.cfg.SystemStatus
}

// CommandEchoTopics returns every topic that carries server-originated
// commands. Events arriving on these topics with a server origin marker
// are echoes of our own output and must not re-enter the pipeline.
func (t Topics) CommandEchoTopics() []string {
	return []string{
		t.cfg.LampCommand,
		t.cfg.WebCommand,
		t.cfg.GateCommand,
		t.cfg.Scene,
		t.cfg.Notification,
	}
}
