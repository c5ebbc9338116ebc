// Package api provides the HTTP REST API and WebSocket server.
//
// It exposes mapping administration, the event log, live event results
// over WebSocket, and system health and metrics to admin interfaces.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/opencasa/casa-core/internal/eventlog"
	"github.com/opencasa/casa-core/internal/infrastructure/config"
	"github.com/opencasa/casa-core/internal/infrastructure/database"
	"github.com/opencasa/casa-core/internal/infrastructure/influxdb"
	"github.com/opencasa/casa-core/internal/infrastructure/logging"
	"github.com/opencasa/casa-core/internal/infrastructure/mqtt"
	"github.com/opencasa/casa-core/internal/mapping"
	"github.com/opencasa/casa-core/internal/pipeline"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Mappings    *mapping.Registry
	Pipeline    *pipeline.Pipeline
	EventLog    eventlog.Repository
	MQTT        *mqtt.Client      // optional: reported in health/metrics
	DB          *database.DB      // optional: reported in health/metrics
	TSDB        *influxdb.Client  // optional: reported in health
	ExternalHub *Hub              // if set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	mappings    *mapping.Registry
	pipe        *pipeline.Pipeline
	eventLog    eventlog.Repository
	mqtt        *mqtt.Client
	db          *database.DB
	tsdb        *influxdb.Client
	version     string
	startTime   time.Time
	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Mappings == nil {
		return nil, fmt.Errorf("mapping registry is required")
	}
	if deps.Pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if deps.EventLog == nil {
		return nil, fmt.Errorf("event log is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		mappings:  deps.Mappings,
		pipe:      deps.Pipeline,
		eventLog:  deps.EventLog,
		mqtt:      deps.MQTT,
		db:        deps.DB,
		tsdb:      deps.TSDB,
		version:   deps.Version,
		startTime: time.Now(),
	}

	// Use an externally-provided hub when the pipeline also needs it
	// for broadcasting event results.
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the server's WebSocket hub, creating it if needed.
// Useful for wiring the hub into the pipeline before Start.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the
// HTTP listener in a background goroutine. Stop with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// Close drains in-flight requests for up to gracefulShutdownTimeout,
// then closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	s.logger.Info("API server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the HTTP listener has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
