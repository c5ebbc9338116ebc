// Package command builds and publishes outbound device commands.
//
// Every command carries origin "server" so the ingest listener can tell
// casacore's own output apart from device events when both travel over
// shared topics. The Publisher holds one Handler per target type; each
// handler knows the topic and wire shape its device generation expects.
//
// Dispatch makes exactly one publish attempt per command. Failures are
// isolated per mapping: the pipeline records them and keeps dispatching
// the remaining matches for the same event.
package command
