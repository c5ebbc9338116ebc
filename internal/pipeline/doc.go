// Package pipeline orchestrates event processing from raw inbound
// payloads to published commands.
//
// A single entry point, ProcessEvent, runs the stages in order:
//
//  1. Normalize the payload into a canonical event (legacy and
//     versioned wire formats both accepted).
//  2. Compute the event identity and consult the deduplication guard.
//  3. Resolve the event against the mapping registry.
//  4. Dispatch one command per matched mapping, isolating failures.
//  5. Append the outcome to the event log (never fatal).
//
// Every payload reaches a terminal outcome described by an EventResult:
// completed, dropped_unrecognized, or dropped_duplicate. The pipeline
// also maintains process-lifetime counters exposed via Metrics.
package pipeline
