// Package event defines the canonical Event model and payload normalization.
//
// The deployed device fleet speaks three generations of wire format:
// versioned JSON (v1.0), legacy Portuguese-named JSON, and bare strings
// from the oldest firmware. Normalize converts all of them into one
// canonical Event so the rest of the pipeline never sees format drift.
//
// Events carry a server-assigned ReceivedAt (authoritative) and an
// optional device-reported Timestamp (untrusted). The derived identity
// from Event.ID feeds duplicate suppression: broker redelivery of the
// same physical press produces the same identity within the dedup window.
package event
