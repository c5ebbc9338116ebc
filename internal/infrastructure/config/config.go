package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Casa Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	House     HouseConfig     `yaml:"house"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
}

// HouseConfig identifies the installation this instance serves.
type HouseConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig holds the SQLite settings. BusyTimeout is in
// milliseconds.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig holds broker connection, auth and topic settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	Topics    MQTTTopicsConfig    `yaml:"topics"`
}

// MQTTBrokerConfig locates the broker.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	TLS      bool   `yaml:"tls"`
}

// MQTTAuthConfig carries broker credentials. Leave empty for anonymous
// local brokers.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig tunes the reconnect backoff. Delays are in
// seconds; MaxAttempts zero means retry forever.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// MQTTTopicsConfig contains the topic names used by the device fleet.
// Defaults match the topics the installed ESP firmware already publishes on,
// so a fresh deployment works against an existing installation.
type MQTTTopicsConfig struct {
	// ButtonEvents receives button/switch events from wall bases.
	ButtonEvents string `yaml:"button_events"`

	// LampState is the prefix for per-lamp state confirmations.
	// Devices publish on {prefix}/{comodo}.
	LampState string `yaml:"lamp_state"`

	// LampCommand carries server-issued lamp commands. The ingest listener
	// also monitors it as the command-echo channel for loop detection.
	LampCommand string `yaml:"lamp_command"`

	// WebCommand carries commands issued from the web dashboard.
	WebCommand string `yaml:"web_command"`

	// GateCommand carries pulse-sequence commands to the gate controller.
	GateCommand string `yaml:"gate_command"`

	// Scene carries scene activation commands.
	Scene string `yaml:"scene"`

	// Notification carries notification fan-out messages.
	Notification string `yaml:"notification"`

	// SystemStatus is the server online/offline status topic (LWT).
	SystemStatus string `yaml:"system_status"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig holds the optional telemetry store settings.
// FlushInterval is in seconds.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig selects log level, format and destination.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// PipelineConfig contains event pipeline tuning.
type PipelineConfig struct {
	// DedupWindow is the idempotency window in seconds. Repeated deliveries
	// of the same logical event within this window collapse to one.
	DedupWindow int `yaml:"dedup_window"`

	// DedupMaxEntries bounds the idempotency cache under device flooding.
	DedupMaxEntries int `yaml:"dedup_max_entries"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CASACORE_SECTION_KEY
// For example: CASACORE_DATABASE_PATH, CASACORE_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		House: HouseConfig{
			ID:       "casa-001",
			Name:     "Casa",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/casacore.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "casacore-server",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			Topics: MQTTTopicsConfig{
				ButtonEvents: "casa/evento/botao",
				LampState:    "casa/estado/lampada",
				LampCommand:  "casa/servidor/comando_lampada",
				WebCommand:   "casa/servidor_web/comando_lampada",
				GateCommand:  "casa/esp/acionar_lampada",
				Scene:        "casa/servidor/cena",
				Notification: "casa/servidor/notificacao",
				SystemStatus: "casa/sistema/status",
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Pipeline: PipelineConfig{
			DedupWindow:     3,
			DedupMaxEntries: 10000,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CASACORE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("CASACORE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("CASACORE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CASACORE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CASACORE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("CASACORE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("CASACORE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.House.ID == "" {
		errs = append(errs, "house.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.BusyTimeout < 0 {
		errs = append(errs, "database.busy_timeout must be >= 0")
	}

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port <= 0 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be 1-65535")
	}
	if c.MQTT.Broker.ClientID == "" {
		errs = append(errs, "mqtt.broker.client_id is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	for name, topic := range map[string]string{
		"mqtt.topics.button_events": c.MQTT.Topics.ButtonEvents,
		"mqtt.topics.lamp_state":    c.MQTT.Topics.LampState,
		"mqtt.topics.lamp_command":  c.MQTT.Topics.LampCommand,
		"mqtt.topics.system_status": c.MQTT.Topics.SystemStatus,
	} {
		if topic == "" {
			errs = append(errs, name+" is required")
		} else if strings.ContainsAny(topic, "#+") {
			errs = append(errs, name+" must not contain wildcards")
		}
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be 1-65535")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" {
			errs = append(errs, "influxdb.org is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if c.Pipeline.DedupWindow <= 0 {
		errs = append(errs, "pipeline.dedup_window must be > 0")
	}
	if c.Pipeline.DedupMaxEntries <= 0 {
		errs = append(errs, "pipeline.dedup_max_entries must be > 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
