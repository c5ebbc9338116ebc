package command

import (
	"context"
	"fmt"
	"sync"

	"github.com/opencasa/casa-core/internal/mapping"
)

// MQTTPublisher is the transport interface the publisher needs.
// *mqtt.Client satisfies it.
type MQTTPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger defines the logging interface used by the Publisher.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Handler converts a command into its wire form for one target type.
// It returns the topic to publish on and the serialized payload.
type Handler func(cmd *Command) (topic string, payload []byte, err error)

// Publisher dispatches commands for resolved mappings.
//
// A handler is registered per target type at startup; Dispatch builds the
// Command, asks the handler for topic and payload, and publishes exactly
// once. Publish failures are returned to the caller but never retried
// here; transport-level retry is the broker session's concern.
//
// All methods are safe for concurrent use.
type Publisher struct {
	client MQTTPublisher
	qos    byte

	handlers   map[mapping.TargetType]Handler
	handlersMu sync.RWMutex

	logger Logger
}

// NewPublisher creates a publisher with an empty handler table.
func NewPublisher(client MQTTPublisher, qos byte) *Publisher {
	return &Publisher{
		client:   client,
		qos:      qos,
		handlers: make(map[mapping.TargetType]Handler),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the publisher.
func (p *Publisher) SetLogger(logger Logger) {
	p.logger = logger
}

// Register installs the handler for a target type, replacing any
// previous registration.
func (p *Publisher) Register(targetType mapping.TargetType, handler Handler) {
	p.handlersMu.Lock()
	p.handlers[targetType] = handler
	p.handlersMu.Unlock()
}

// HandlerCount returns the number of registered handlers.
func (p *Publisher) HandlerCount() int {
	p.handlersMu.RLock()
	defer p.handlersMu.RUnlock()
	return len(p.handlers)
}

// Dispatch builds and publishes the command for one resolved mapping.
//
// The triggeredBy argument is the triggering event's identity (empty for
// direct API commands). The returned Command describes what was sent,
// also on failure, so callers can record it.
//
// Exactly one publish attempt is made. A failure is reported via
// ErrDispatchFailed and must not stop the caller from dispatching the
// remaining mappings for the same event.
func (p *Publisher) Dispatch(ctx context.Context, m *mapping.Mapping, triggeredBy string) (*Command, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	p.handlersMu.RLock()
	handler, ok := p.handlers[m.TargetType]
	p.handlersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoHandler, m.TargetType)
	}

	cmd := New(m, triggeredBy)

	topic, payload, err := handler(cmd)
	if err != nil {
		return cmd, fmt.Errorf("%w: building payload for %s: %w", ErrDispatchFailed, m.TargetID, err)
	}

	if err := p.client.Publish(topic, payload, p.qos, false); err != nil {
		return cmd, fmt.Errorf("%w: publishing to %s: %w", ErrDispatchFailed, topic, err)
	}

	p.logger.Debug("command dispatched",
		"command_id", cmd.ID,
		"target", cmd.TargetID,
		"type", cmd.Type,
		"topic", topic,
		"trigger", triggeredBy,
	)
	return cmd, nil
}
