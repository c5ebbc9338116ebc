package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/opencasa/casa-core/internal/command"
	"github.com/opencasa/casa-core/internal/dedup"
	"github.com/opencasa/casa-core/internal/event"
	"github.com/opencasa/casa-core/internal/eventlog"
	"github.com/opencasa/casa-core/internal/mapping"
)

// MatchFinder is the interface the pipeline needs from the mapping package.
// It resolves a concrete event coordinate to the mappings that should fire.
type MatchFinder interface {
	FindMatches(device, button string, action event.Action) []mapping.Mapping
}

// Dispatcher is the interface for publishing mapped commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, m *mapping.Mapping, triggeredBy string) (*command.Command, error)
}

// EventLog is the interface for the append-only processing log.
type EventLog interface {
	Append(ctx context.Context, record *eventlog.Record) error
}

// WSHub is the interface for broadcasting processing results to
// connected clients. May be nil when no WebSocket surface is wired.
type WSHub interface {
	Broadcast(channel string, payload any)
}

// TelemetryWriter records outcomes in a time-series store. May be nil
// when the integration is disabled; implemented by the influxdb client.
type TelemetryWriter interface {
	WriteEventOutcome(device, action, status string, matched, dispatched int, latency time.Duration)
	WriteCommandMetric(targetType, targetID, commandType string, success bool)
}

// Logger is the interface for pipeline logging.
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

// Pipeline turns raw inbound payloads into published commands.
//
// Processing order: normalize, deduplicate, resolve mappings, dispatch,
// then append to the event log. Each stage is terminal on failure except
// dispatch, where per-mapping failures are isolated, and the log append,
// which is never fatal.
//
// Thread Safety: ProcessEvent is safe for concurrent use.
type Pipeline struct {
	guard      *dedup.Guard
	matcher    MatchFinder
	dispatcher Dispatcher
	log        EventLog
	hub        WSHub
	metrics    *Metrics
	logger     Logger
	telemetry  TelemetryWriter
}

// New creates a pipeline. The hub may be nil; the metrics set is created
// if nil so callers can omit it in tests.
func New(guard *dedup.Guard, matcher MatchFinder, dispatcher Dispatcher, log EventLog, hub WSHub, metrics *Metrics, logger Logger) *Pipeline {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Pipeline{
		guard:      guard,
		matcher:    matcher,
		dispatcher: dispatcher,
		log:        log,
		hub:        hub,
		metrics:    metrics,
		logger:     logger,
	}
}

// SetTelemetry attaches a time-series writer for event outcomes.
// Call during wiring, before the listener starts delivering messages.
func (p *Pipeline) SetTelemetry(w TelemetryWriter) {
	p.telemetry = w
}

// Metrics returns the pipeline's counter set.
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// ProcessEvent runs one raw payload through the full pipeline.
//
// The returned EventResult always describes the terminal outcome. The
// error is non-nil only when the payload could not be normalized, in
// which case it wraps event.ErrUnrecognizedPayload.
func (p *Pipeline) ProcessEvent(ctx context.Context, payload []byte, topic string) (*EventResult, error) {
	start := time.Now()
	p.metrics.recordReceived()

	evt, err := event.Normalize(payload, topic)
	if err != nil {
		p.metrics.recordUnrecognized()
		p.logger.Warn("dropping unrecognized payload",
			"topic", topic,
			"size", len(payload),
			"error", err,
		)
		return &EventResult{Status: StatusDroppedUnrecognized}, fmt.Errorf("normalizing payload from %q: %w", topic, err)
	}

	eventID := evt.ID(p.guard.Window())

	if !p.guard.ShouldProcess(eventID, evt.ReceivedAt) {
		p.metrics.recordDuplicate()
		p.logger.Debug("dropping duplicate event", "event_id", eventID)
		return &EventResult{EventID: eventID, Status: StatusDroppedDuplicate}, nil
	}

	matches := p.matcher.FindMatches(evt.Device, evt.Button, evt.Action)
	p.metrics.recordMatched(len(matches))

	result := &EventResult{
		EventID:      eventID,
		Status:       StatusCompleted,
		MatchedCount: len(matches),
	}

	for i := range matches {
		m := &matches[i]
		// A cancelled context stops further dispatch. Commands already
		// published stay published; the remaining mappings are recorded
		// as failures so the result accounts for every match.
		if ctxErr := ctx.Err(); ctxErr != nil {
			result.Failures = append(result.Failures, DispatchFailure{
				MappingID: m.ID,
				TargetID:  m.TargetID,
				Command:   m.Command,
				Error:     ctxErr.Error(),
			})
			p.metrics.recordFailure()
			continue
		}

		if _, dispatchErr := p.dispatcher.Dispatch(ctx, m, eventID); dispatchErr != nil {
			result.Failures = append(result.Failures, DispatchFailure{
				MappingID: m.ID,
				TargetID:  m.TargetID,
				Command:   m.Command,
				Error:     dispatchErr.Error(),
			})
			p.metrics.recordFailure()
			p.logger.Error("command dispatch failed",
				"event_id", eventID,
				"mapping_id", m.ID,
				"target_id", m.TargetID,
				"error", dispatchErr,
			)
			if p.telemetry != nil {
				p.telemetry.WriteCommandMetric(string(m.TargetType), m.TargetID, m.Command, false)
			}
			continue
		}

		result.DispatchedCount++
		p.metrics.recordDispatched()
		if p.telemetry != nil {
			p.telemetry.WriteCommandMetric(string(m.TargetType), m.TargetID, m.Command, true)
		}
	}

	p.appendLog(evt, result)

	elapsed := time.Since(start)
	p.metrics.recordLatency(elapsed)
	if p.telemetry != nil {
		p.telemetry.WriteEventOutcome(evt.Device, string(evt.Action), string(result.Status),
			result.MatchedCount, result.DispatchedCount, elapsed)
	}

	p.logger.Info("event processed",
		"event_id", eventID,
		"device", evt.Device,
		"action", evt.Action,
		"matched", result.MatchedCount,
		"dispatched", result.DispatchedCount,
		"failed", len(result.Failures),
	)

	if p.hub != nil {
		p.hub.Broadcast("event.processed", result)
	}

	return result, nil
}

// appendLog persists the processing outcome. Log failures never affect
// the event result; command delivery matters more than the audit trail.
func (p *Pipeline) appendLog(evt *event.Event, result *EventResult) {
	if p.log == nil {
		return
	}

	// Detached context: the log append should survive cancellation of
	// the inbound message context.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec := eventlog.NewRecord(evt, result.EventID, string(result.Status), result.MatchedCount, result.DispatchedCount)
	if err := p.log.Append(ctx, rec); err != nil {
		p.metrics.recordLogFailure()
		p.logger.Error("failed to append event log record",
			"event_id", result.EventID,
			"error", err,
		)
	}
}
