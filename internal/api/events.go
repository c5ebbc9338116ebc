package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/opencasa/casa-core/internal/event"
	"github.com/opencasa/casa-core/internal/eventlog"
)

// handleListEvents returns event log records, most recent first.
//
// Query parameters:
//   - device: filter by source device
//   - status: filter by processing status
//   - limit: page size (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	filter := eventlog.Filter{
		Device: r.URL.Query().Get("device"),
		Status: r.URL.Query().Get("status"),
	}
	if len(filter.Device) > maxQueryParamLen || len(filter.Status) > maxQueryParamLen {
		writeBadRequest(w, "query parameter exceeds maximum length")
		return
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.eventLog.List(r.Context(), filter)
	if err != nil {
		writeInternalError(w, "failed to list events")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// injectRequest is the request body for POST /events.
//
// Payload accepts either a JSON object (forwarded as-is) or a string
// carrying a legacy raw payload.
type injectRequest struct {
	Payload json.RawMessage `json:"payload"`
	Topic   string          `json:"topic"`
}

// handleInjectEvent feeds a payload through the pipeline as if it had
// arrived from the broker. Used by admin UIs to test mappings.
func (s *Server) handleInjectEvent(w http.ResponseWriter, r *http.Request) {
	var req injectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Payload) == 0 {
		writeBadRequest(w, "payload is required")
		return
	}

	payload := []byte(req.Payload)

	// A JSON string payload carries a legacy raw string; unwrap it.
	var raw string
	if err := json.Unmarshal(req.Payload, &raw); err == nil {
		payload = []byte(raw)
	}

	result, err := s.pipe.ProcessEvent(r.Context(), payload, req.Topic)
	if err != nil {
		if errors.Is(err, event.ErrUnrecognizedPayload) {
			writeJSON(w, http.StatusUnprocessableEntity, result)
			return
		}
		writeInternalError(w, "failed to process event")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
