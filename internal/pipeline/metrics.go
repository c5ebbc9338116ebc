package pipeline

import (
	"sync/atomic"
	"time"
)

// Metrics holds process-lifetime counters for the event pipeline.
//
// All methods are safe for concurrent use. Counters reset on restart;
// long-term trends belong in the time-series store, not here.
type Metrics struct {
	eventsReceived     atomic.Int64
	eventsDuplicate    atomic.Int64
	eventsUnrecognized atomic.Int64
	mappingsMatched    atomic.Int64
	commandsDispatched atomic.Int64
	dispatchFailures   atomic.Int64
	logFailures        atomic.Int64

	// Latency is tracked as a running sum so the snapshot can report an
	// average without holding per-event samples.
	latencyMicros atomic.Int64
	latencyCount  atomic.Int64
}

// NewMetrics creates a zeroed metrics set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) recordReceived() { m.eventsReceived.Add(1) }

func (m *Metrics) recordDuplicate() { m.eventsDuplicate.Add(1) }

func (m *Metrics) recordUnrecognized() { m.eventsUnrecognized.Add(1) }

func (m *Metrics) recordMatched(n int) { m.mappingsMatched.Add(int64(n)) }

func (m *Metrics) recordDispatched() { m.commandsDispatched.Add(1) }

func (m *Metrics) recordFailure() { m.dispatchFailures.Add(1) }

func (m *Metrics) recordLogFailure() { m.logFailures.Add(1) }

func (m *Metrics) recordLatency(d time.Duration) {
	m.latencyMicros.Add(d.Microseconds())
	m.latencyCount.Add(1)
}

// Snapshot is a point-in-time copy of the pipeline counters.
type Snapshot struct {
	EventsReceived     int64 `json:"events_received"`
	EventsDuplicate    int64 `json:"events_duplicate"`
	EventsUnrecognized int64 `json:"events_unrecognized"`
	MappingsMatched    int64 `json:"mappings_matched"`
	CommandsDispatched int64 `json:"commands_dispatched"`
	DispatchFailures   int64 `json:"dispatch_failures"`
	LogFailures        int64 `json:"log_failures"`
	AvgLatencyMicros   int64 `json:"avg_latency_us"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		EventsReceived:     m.eventsReceived.Load(),
		EventsDuplicate:    m.eventsDuplicate.Load(),
		EventsUnrecognized: m.eventsUnrecognized.Load(),
		MappingsMatched:    m.mappingsMatched.Load(),
		CommandsDispatched: m.commandsDispatched.Load(),
		DispatchFailures:   m.dispatchFailures.Load(),
		LogFailures:        m.logFailures.Load(),
	}
	if count := m.latencyCount.Load(); count > 0 {
		s.AvgLatencyMicros = m.latencyMicros.Load() / count
	}
	return s
}
