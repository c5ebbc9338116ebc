package ingest

import (
	"context"
	"sync"
	"testing"

	"github.com/opencasa/casa-core/internal/infrastructure/config"
	"github.com/opencasa/casa-core/internal/infrastructure/mqtt"
	"github.com/opencasa/casa-core/internal/pipeline"
)

type mockMQTT struct {
	mu       sync.Mutex
	handlers map[string]func(topic string, payload []byte)
	failErr  error
}

func newMockMQTT() *mockMQTT {
	return &mockMQTT{handlers: make(map[string]func(topic string, payload []byte))}
}

func (m *mockMQTT) Subscribe(topic string, _ byte, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.handlers[topic] = handler
	return nil
}

func (m *mockMQTT) IsConnected() bool { return true }

// deliver simulates a broker message arriving on a subscribed topic.
func (m *mockMQTT) deliver(t *testing.T, topic string, payload []byte) {
	t.Helper()
	m.mu.Lock()
	handler, ok := m.handlers[topic]
	m.mu.Unlock()
	if !ok {
		t.Fatalf("no subscription for topic %q", topic)
	}
	handler(topic, payload)
}

type mockProcessor struct {
	mu       sync.Mutex
	payloads []string
	topics   []string
}

func (m *mockProcessor) ProcessEvent(_ context.Context, payload []byte, topic string) (*pipeline.EventResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, string(payload))
	m.topics = append(m.topics, topic)
	return &pipeline.EventResult{EventID: "test", Status: pipeline.StatusCompleted}, nil
}

func (m *mockProcessor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payloads)
}

func testTopics() mqtt.Topics {
	return mqtt.NewTopics(config.MQTTTopicsConfig{
		ButtonEvents: "casa/evento/botao",
		LampState:    "casa/estado/lampada",
		LampCommand:  "casa/servidor/comando_lampada",
		WebCommand:   "casa/servidor_web/comando_lampada",
		GateCommand:  "casa/esp/acionar_lampada",
		Scene:        "casa/servidor/cena",
		Notification: "casa/servidor/notificacao",
		SystemStatus: "casa/sistema/status",
	})
}

func newTestListener(t *testing.T, client *mockMQTT, processor *mockProcessor) *Listener {
	t.Helper()
	l, err := NewListener(client, processor, testTopics(), 1, nil)
	if err != nil {
		t.Fatalf("NewListener() error = %v", err)
	}
	return l
}

func TestNewListenerValidation(t *testing.T) {
	if _, err := NewListener(nil, &mockProcessor{}, testTopics(), 1, nil); err == nil {
		t.Error("NewListener(nil client) did not error")
	}
	if _, err := NewListener(newMockMQTT(), nil, testTopics(), 1, nil); err == nil {
		t.Error("NewListener(nil processor) did not error")
	}
}

func TestStartSubscribesAllTopics(t *testing.T) {
	client := newMockMQTT()
	l := newTestListener(t, client, &mockProcessor{})

	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	topics := testTopics()
	want := []string{topics.ButtonEvents(), topics.AllLampStates()}
	want = append(want, topics.CommandEchoTopics()...)

	for _, topic := range want {
		if _, ok := client.handlers[topic]; !ok {
			t.Errorf("no subscription for %q", topic)
		}
	}
	if len(client.handlers) != len(want) {
		t.Errorf("subscriptions = %d, want %d", len(client.handlers), len(want))
	}
}

func TestMessageReachesPipeline(t *testing.T) {
	client := newMockMQTT()
	processor := &mockProcessor{}
	l := newTestListener(t, client, processor)
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	topic := testTopics().ButtonEvents()
	client.deliver(t, topic, []byte(`{"base": "Base_A", "botao": "B1", "estado": "pressionado"}`))

	if processor.callCount() != 1 {
		t.Fatalf("processor calls = %d, want 1", processor.callCount())
	}
	if processor.topics[0] != topic {
		t.Errorf("topic = %q, want %q", processor.topics[0], topic)
	}
}

func TestServerEchoDropped(t *testing.T) {
	client := newMockMQTT()
	processor := &mockProcessor{}
	l := newTestListener(t, client, processor)
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	commandTopic := testTopics().LampCommand()

	// A command this service published echoes back with origin "server".
	echo := []byte(`{"v": "1.0", "comodo": "L_Cozinha", "command": "toggle", "origin": "server"}`)
	client.deliver(t, commandTopic, echo)

	if processor.callCount() != 0 {
		t.Errorf("processor calls = %d, want 0 for server echo", processor.callCount())
	}

	// Commands from external surfaces keep flowing.
	external := []byte(`{"v": "1.0", "comodo": "L_Cozinha", "command": "toggle", "origin": "web_ui"}`)
	client.deliver(t, commandTopic, external)

	if processor.callCount() != 1 {
		t.Errorf("processor calls = %d, want 1 for external command", processor.callCount())
	}
}

func TestRawStringNotTreatedAsEcho(t *testing.T) {
	client := newMockMQTT()
	processor := &mockProcessor{}
	l := newTestListener(t, client, processor)
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Legacy raw strings are not JSON and can never carry an origin.
	client.deliver(t, testTopics().ButtonEvents(), []byte("Base_A,B1,press"))

	if processor.callCount() != 1 {
		t.Errorf("processor calls = %d, want 1", processor.callCount())
	}
}

func TestStopHaltsProcessing(t *testing.T) {
	client := newMockMQTT()
	processor := &mockProcessor{}
	l := newTestListener(t, client, processor)
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	l.Stop()
	l.Stop() // idempotent

	client.deliver(t, testTopics().ButtonEvents(), []byte("Base_A,B1,press"))

	if processor.callCount() != 0 {
		t.Errorf("processor calls = %d, want 0 after Stop", processor.callCount())
	}
}

func TestIsServerOrigin(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    bool
	}{
		{"server origin", `{"origin": "server"}`, true},
		{"other origin", `{"origin": "esp32"}`, false},
		{"no origin", `{"comodo": "L_Sala"}`, false},
		{"raw string", "Base_A,B1,press", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isServerOrigin([]byte(tt.payload)); got != tt.want {
				t.Errorf("isServerOrigin(%q) = %v, want %v", tt.payload, got, tt.want)
			}
		})
	}
}
