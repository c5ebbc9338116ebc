// Package dedup suppresses duplicate event processing.
//
// MQTT QoS 1 delivery and flaky wall-base firmware both produce repeats
// of the same physical button press. The Guard admits the first sighting
// of an event identity and rejects the rest for the duration of the
// window, keeping command dispatch idempotent without any persistence.
package dedup
