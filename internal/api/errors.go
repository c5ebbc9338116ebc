package api

import (
	"encoding/json"
	"net/http"
)

// Error is the body of every non-2xx response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorCodes maps an HTTP status to its machine-readable code. Statuses
// missing from the table fall back to "internal_error".
var errorCodes = map[int]string{
	http.StatusBadRequest:          "bad_request",
	http.StatusNotFound:            "not_found",
	http.StatusConflict:            "conflict",
	http.StatusUnprocessableEntity: "validation_error",
	http.StatusInternalServerError: "internal_error",
}

// writeJSON serializes v with the given status. Encoding errors are
// ignored, the client may already be gone.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	code, ok := errorCodes[status]
	if !ok {
		code = "internal_error"
	}
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusNotFound, message)
}

func writeConflict(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusConflict, message)
}

func writeValidationError(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusUnprocessableEntity, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusInternalServerError, message)
}
