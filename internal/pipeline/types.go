package pipeline

// Status describes the terminal outcome of processing one inbound payload.
type Status string

const (
	// StatusCompleted means the event was admitted and dispatch ran to the
	// end. Individual mapping failures are reported in EventResult.Failures
	// without changing the status.
	StatusCompleted Status = "completed"

	// StatusDroppedUnrecognized means the payload could not be normalized
	// into an event. Nothing was matched or dispatched.
	StatusDroppedUnrecognized Status = "dropped_unrecognized"

	// StatusDroppedDuplicate means the event was a re-delivery inside the
	// deduplication window. Nothing was matched or dispatched.
	StatusDroppedDuplicate Status = "dropped_duplicate"
)

// DispatchFailure records one mapping whose command could not be published.
type DispatchFailure struct {
	MappingID string `json:"mapping_id"`
	TargetID  string `json:"target_id"`
	Command   string `json:"command"`
	Error     string `json:"error"`
}

// EventResult summarises the processing of one inbound payload.
type EventResult struct {
	EventID         string            `json:"event_id,omitempty"`
	Status          Status            `json:"status"`
	MatchedCount    int               `json:"matched_count"`
	DispatchedCount int               `json:"dispatched_count"`
	Failures        []DispatchFailure `json:"failures,omitempty"`
}
