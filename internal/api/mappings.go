package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opencasa/casa-core/internal/mapping"
)

// maxQueryParamLen limits query parameter length to prevent DoS via oversized URL params.
const maxQueryParamLen = 100

// handleListMappings returns all mappings.
func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := s.mappings.ListMappings(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list mappings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"mappings": mappings, "count": len(mappings)})
}

// handleGetMapping returns a single mapping by ID.
func (s *Server) handleGetMapping(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid mapping ID")
		return
	}

	m, err := s.mappings.GetMapping(r.Context(), id)
	if err != nil {
		if errors.Is(err, mapping.ErrMappingNotFound) {
			writeNotFound(w, "mapping not found")
			return
		}
		writeInternalError(w, "failed to get mapping")
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// handleCreateMapping creates a new mapping.
func (s *Server) handleCreateMapping(w http.ResponseWriter, r *http.Request) {
	// Enabled defaults to true; an explicit "enabled": false overrides.
	m := mapping.Mapping{Enabled: true}
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.mappings.CreateMapping(r.Context(), &m); err != nil {
		if errors.Is(err, mapping.ErrInvalidMapping) {
			writeValidationError(w, err.Error())
			return
		}
		if errors.Is(err, mapping.ErrMappingExists) {
			writeConflict(w, err.Error())
			return
		}
		writeInternalError(w, "failed to create mapping")
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

// handleUpdateMapping partially updates a mapping.
func (s *Server) handleUpdateMapping(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid mapping ID")
		return
	}

	existing, err := s.mappings.GetMapping(r.Context(), id)
	if err != nil {
		if errors.Is(err, mapping.ErrMappingNotFound) {
			writeNotFound(w, "mapping not found")
			return
		}
		writeInternalError(w, "failed to get mapping")
		return
	}

	// Decode partial update onto the existing mapping
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // Ensure ID cannot be changed

	if err := s.mappings.UpdateMapping(r.Context(), existing); err != nil {
		if errors.Is(err, mapping.ErrInvalidMapping) {
			writeValidationError(w, err.Error())
			return
		}
		if errors.Is(err, mapping.ErrMappingNotFound) {
			writeNotFound(w, "mapping not found")
			return
		}
		writeInternalError(w, "failed to update mapping")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteMapping removes a mapping by ID.
func (s *Server) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid mapping ID")
		return
	}

	if err := s.mappings.DeleteMapping(r.Context(), id); err != nil {
		if errors.Is(err, mapping.ErrMappingNotFound) {
			writeNotFound(w, "mapping not found")
			return
		}
		writeInternalError(w, "failed to delete mapping")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
