// Package influxdb records event telemetry in a time-series store.
//
// The pipeline writes one point per processed event and one per
// dispatched command through the official influxdb-client-go v2
// library. Writes are batched and never block event processing; async
// failures reach the caller via SetOnError.
//
// Telemetry is optional. With the integration disabled in config,
// Connect returns ErrDisabled and the service runs without it.
package influxdb
