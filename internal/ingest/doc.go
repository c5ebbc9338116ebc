// Package ingest receives inbound MQTT traffic and feeds it to the
// event pipeline.
//
// The listener subscribes to the button event topic, the lamp state
// wildcard, and the command topics. Messages carrying the server origin
// are dropped before normalization so the service never reprocesses its
// own published commands.
package ingest
