package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(requestID)
	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))
	r.Use(cors(s.cfg.CORS.AllowedOrigins))
	r.Use(limitBody)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Event endpoints
		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.handleListEvents)
			r.Post("/", s.handleInjectEvent)
		})

		// Mapping endpoints
		r.Route("/mappings", func(r chi.Router) {
			r.Get("/", s.handleListMappings)
			r.Post("/", s.handleCreateMapping)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetMapping)
				r.Patch("/", s.handleUpdateMapping)
				r.Delete("/", s.handleDeleteMapping)
			})
		})

		// WebSocket for live event results
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// healthCheckTimeout bounds the dependency probes in the health handler.
const healthCheckTimeout = 3 * time.Second

// handleHealth returns the server health status with dependency checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	status := "ok"

	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			checks["database"] = err.Error()
			status = "degraded"
		} else {
			checks["database"] = "ok"
		}
	}

	if s.mqtt != nil {
		if s.mqtt.IsConnected() {
			checks["mqtt"] = "ok"
		} else {
			checks["mqtt"] = "disconnected"
			status = "degraded"
		}
	}

	if s.tsdb != nil {
		if s.tsdb.IsConnected() {
			checks["influxdb"] = "ok"
		} else {
			// Telemetry is optional; a down TSDB does not degrade the service.
			checks["influxdb"] = "disconnected"
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":   status,
		"version":  s.version,
		"mappings": s.mappings.Count(),
		"checks":   checks,
	})
}
