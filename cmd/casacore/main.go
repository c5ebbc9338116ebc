// Casa Core - Home Automation Event Mapper
//
// This is the main entry point for the Casa Core service. Casa Core
// bridges wall-mounted button bases and actuator nodes over MQTT:
//   - Normalises legacy and v1.0 event payloads into one model
//   - Collapses duplicate deliveries inside an idempotency window
//   - Resolves configured mappings and dispatches target commands
//   - Serves a REST/WebSocket admin API for mappings and live results
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/opencasa/casa-core/migrations"

	"github.com/opencasa/casa-core/internal/api"
	"github.com/opencasa/casa-core/internal/command"
	"github.com/opencasa/casa-core/internal/dedup"
	"github.com/opencasa/casa-core/internal/eventlog"
	"github.com/opencasa/casa-core/internal/infrastructure/config"
	"github.com/opencasa/casa-core/internal/infrastructure/database"
	"github.com/opencasa/casa-core/internal/infrastructure/influxdb"
	"github.com/opencasa/casa-core/internal/infrastructure/logging"
	"github.com/opencasa/casa-core/internal/infrastructure/mqtt"
	"github.com/opencasa/casa-core/internal/ingest"
	"github.com/opencasa/casa-core/internal/mapping"
	"github.com/opencasa/casa-core/internal/pipeline"
)

// Set at build time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=$(git rev-parse --short HEAD)"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the service together and blocks until ctx is cancelled.
// Split from main so tests can drive the full startup path.
func run(ctx context.Context) error {
	// Bootstrap logger; replaced once config is loaded.
	log := logging.Default()
	log.Info("starting Casa Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "house", cfg.House.ID)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise mapping registry
	registry := mapping.NewRegistry(mapping.NewSQLiteRepository(db.DB))
	registry.SetLogger(log)
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading mapping registry: %w", refreshErr)
	}
	log.Info("mapping registry initialised", "mappings", registry.Count())

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Set up MQTT logging callbacks
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Command publisher with the default per-target-type handlers
	publisher := command.NewPublisher(mqttClient, byte(cfg.MQTT.QoS))
	publisher.SetLogger(log)
	command.RegisterDefaultHandlers(publisher, mqttClient.Topics())

	// Idempotency guard
	guard := dedup.NewGuard(
		time.Duration(cfg.Pipeline.DedupWindow)*time.Second,
		cfg.Pipeline.DedupMaxEntries,
	)
	log.Info("idempotency guard initialised", "window", guard.Window())

	// Event log repository
	eventLog := eventlog.NewSQLiteRepository(db.DB)

	// WebSocket hub, shared between the pipeline and the API server
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Processing pipeline
	pipe := pipeline.New(guard, registry, publisher, eventLog, hub, nil, log)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		pipe.SetTelemetry(influxClient)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Ingest listener feeds broker messages into the pipeline
	listener, err := ingest.NewListener(
		&mqttIngestAdapter{client: mqttClient},
		pipe,
		mqttClient.Topics(),
		byte(cfg.MQTT.QoS),
		log,
	)
	if err != nil {
		return fmt.Errorf("creating ingest listener: %w", err)
	}
	if startErr := listener.Start(); startErr != nil {
		return fmt.Errorf("starting ingest listener: %w", startErr)
	}
	defer func() {
		log.Info("stopping ingest listener")
		listener.Stop()
	}()
	log.Info("ingest listener started")

	// REST/WebSocket API server
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Mappings:    registry,
		Pipeline:    pipe,
		EventLog:    eventLog,
		MQTT:        mqttClient,
		DB:          db,
		TSDB:        influxClient,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	// The deferred Close calls unwind in reverse: API server, ingest
	// listener, InfluxDB, MQTT, database.
	log.Info("shutdown signal received, cleaning up")

	log.Info("Casa Core stopped")
	return nil
}

// getConfigPath prefers the CASACORE_CONFIG environment variable over
// the compiled-in default.
func getConfigPath() string {
	if path := os.Getenv("CASACORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// mqttIngestAdapter adapts the infrastructure MQTT client to the ingest
// listener's interface. The difference is the Subscribe handler signature:
// - Infrastructure mqtt: func(topic string, payload []byte) error
// - Ingest expects: func(topic string, payload []byte)
type mqttIngestAdapter struct {
	client *mqtt.Client
}

// Subscribe implements ingest.MQTTClient.
func (a *mqttIngestAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	// Wrap the void handler to return nil (ingest handlers don't return errors)
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements ingest.MQTTClient.
func (a *mqttIngestAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
