package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/opencasa/casa-core/internal/command"
	"github.com/opencasa/casa-core/internal/infrastructure/mqtt"
	"github.com/opencasa/casa-core/internal/pipeline"
)

// processTimeout bounds the handling of a single inbound message.
// Normalization and dispatch are fast; this only guards against a stuck
// broker publish holding a paho handler goroutine forever.
const processTimeout = 10 * time.Second

// MQTTClient is the interface for broker subscriptions.
type MQTTClient interface {
	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// EventProcessor is the interface the listener needs from the pipeline.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, payload []byte, topic string) (*pipeline.EventResult, error)
}

// Logger is the interface for listener logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Listener subscribes to the inbound event topics and feeds every
// message into the pipeline.
//
// Command topics are included so commands issued by external surfaces
// (legacy web UI, wall panels) flow through the same pipeline, but
// messages the service published itself echo back on those topics.
// The listener drops anything carrying the server origin before
// normalization, which is what keeps dispatch from feeding itself.
//
// Thread Safety: handlers run on paho goroutines and are safe for
// concurrent use.
type Listener struct {
	mqtt      MQTTClient
	processor EventProcessor
	topics    mqtt.Topics
	qos       byte
	logger    Logger

	ctx       context.Context
	ctxCancel context.CancelFunc
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewListener creates a listener. Call Start to begin receiving.
func NewListener(client MQTTClient, processor EventProcessor, topics mqtt.Topics, qos byte, logger Logger) (*Listener, error) {
	if client == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if processor == nil {
		return nil, fmt.Errorf("event processor is required")
	}
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Listener{
		mqtt:      client,
		processor: processor,
		topics:    topics,
		qos:       qos,
		logger:    logger,
		ctx:       ctx,
		ctxCancel: cancel,
	}, nil
}

// Start subscribes to all inbound topics.
func (l *Listener) Start() error {
	subscriptions := []string{
		l.topics.ButtonEvents(),
		l.topics.AllLampStates(),
	}
	subscriptions = append(subscriptions, l.topics.CommandEchoTopics()...)

	for _, topic := range subscriptions {
		if err := l.mqtt.Subscribe(topic, l.qos, l.handleMessage); err != nil {
			return fmt.Errorf("subscribing to %q: %w", topic, err)
		}
	}

	l.logger.Info("event listener started", "topics", len(subscriptions))
	return nil
}

// Stop cancels in-flight processing and waits for handlers to drain.
// The MQTT subscriptions themselves are torn down with the client.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() {
		l.ctxCancel()
		l.wg.Wait()
		l.logger.Info("event listener stopped")
	})
}

// handleMessage feeds one inbound message into the pipeline.
func (l *Listener) handleMessage(topic string, payload []byte) {
	if l.ctx.Err() != nil {
		return
	}

	if isServerOrigin(payload) {
		l.logger.Debug("dropping own echo", "topic", topic)
		return
	}

	l.wg.Add(1)
	defer l.wg.Done()

	ctx, cancel := context.WithTimeout(l.ctx, processTimeout)
	defer cancel()

	result, err := l.processor.ProcessEvent(ctx, payload, topic)
	if err != nil {
		// Unrecognized payloads are expected broker noise, already
		// counted and logged by the pipeline.
		return
	}

	l.logger.Debug("message processed",
		"topic", topic,
		"event_id", result.EventID,
		"status", result.Status,
	)
}

// isServerOrigin peeks at the payload origin without full normalization.
// Non-JSON payloads (legacy raw strings) never carry the server origin.
func isServerOrigin(payload []byte) bool {
	var peek struct {
		Origin string `json:"origin"`
	}
	if err := json.Unmarshal(payload, &peek); err != nil {
		return false
	}
	return peek.Origin == command.Origin
}
