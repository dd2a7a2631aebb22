package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for OrcheStream.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	ArtNet        ArtNetConfig        `yaml:"artnet"`
	DMX           DMXConfig           `yaml:"dmx"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	Bridge        BridgeConfig        `yaml:"bridge"`
	Database      DatabaseConfig      `yaml:"database"`
	API           APIConfig           `yaml:"api"`
	WebSocket     WebSocketConfig     `yaml:"websocket"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ArtNetConfig contains the Art-Net UDP listener settings.
type ArtNetConfig struct {
	BindIP   string `yaml:"bind_ip"`
	Port     int    `yaml:"port"`
	Universe int    `yaml:"universe"`
}

// DMXConfig contains DMX channel allocation settings.
type DMXConfig struct {
	// StartChannel is the first DMX channel handed out during auto-assignment.
	StartChannel int `yaml:"start_channel"`
}

// HomeAssistantConfig contains Home Assistant connection settings.
type HomeAssistantConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`

	// Label selects which entities the bridge controls.
	Label string `yaml:"label"`

	// ResponseTimeout bounds how long a WebSocket request waits for its
	// matching response, in seconds.
	ResponseTimeout int `yaml:"response_timeout"`
}

// BridgeConfig contains bridge pipeline settings.
type BridgeConfig struct {
	AutoStart bool `yaml:"auto_start"`

	// ThrottleMS is the minimum gap between commands to the same device,
	// in milliseconds.
	ThrottleMS int `yaml:"throttle_ms"`

	// CommandDelayMS is the pause between successive commands within one
	// frame batch, in milliseconds.
	CommandDelayMS int `yaml:"command_delay_ms"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// MQTTConfig contains MQTT broker connection settings for the health reporter.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	BaseTopic string              `yaml:"base_topic"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DMX universe bounds.
const (
	MinChannel  = 1
	MaxChannel  = 512
	MaxUniverse = 32767
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ORCHESTREAM_SECTION_KEY
// For example: ORCHESTREAM_HA_TOKEN, ORCHESTREAM_ARTNET_UNIVERSE
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		ArtNet: ArtNetConfig{
			BindIP:   "0.0.0.0",
			Port:     6454,
			Universe: 0,
		},
		DMX: DMXConfig{
			StartChannel: 1,
		},
		HomeAssistant: HomeAssistantConfig{
			URL:             "http://localhost:8123",
			Label:           "orchestream",
			ResponseTimeout: 10,
		},
		Bridge: BridgeConfig{
			AutoStart:      true,
			ThrottleMS:     50,
			CommandDelayMS: 10,
		},
		Database: DatabaseConfig{
			Path:        "./data/orchestream.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
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
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "orchestream-bridge",
			},
			QoS:       1,
			BaseTopic: "orchestream",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ORCHESTREAM_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Home Assistant
	if v := os.Getenv("ORCHESTREAM_HA_URL"); v != "" {
		cfg.HomeAssistant.URL = v
	}
	if v := os.Getenv("ORCHESTREAM_HA_TOKEN"); v != "" {
		cfg.HomeAssistant.Token = v
	}
	if v := os.Getenv("ORCHESTREAM_HA_LABEL"); v != "" {
		cfg.HomeAssistant.Label = v
	}

	// Art-Net
	if v := os.Getenv("ORCHESTREAM_ARTNET_BIND_IP"); v != "" {
		cfg.ArtNet.BindIP = v
	}
	if v, ok := envInt("ORCHESTREAM_ARTNET_PORT"); ok {
		cfg.ArtNet.Port = v
	}
	if v, ok := envInt("ORCHESTREAM_ARTNET_UNIVERSE"); ok {
		cfg.ArtNet.Universe = v
	}

	// DMX
	if v, ok := envInt("ORCHESTREAM_DMX_START_CHANNEL"); ok {
		cfg.DMX.StartChannel = v
	}

	// Database
	if v := os.Getenv("ORCHESTREAM_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("ORCHESTREAM_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// MQTT
	if v := os.Getenv("ORCHESTREAM_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ORCHESTREAM_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ORCHESTREAM_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("ORCHESTREAM_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("ORCHESTREAM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// envInt reads an integer environment variable. The second return value
// reports whether the variable was set and parsed successfully.
func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Art-Net validation
	if c.ArtNet.Port < 1 || c.ArtNet.Port > 65535 {
		errs = append(errs, "artnet.port must be between 1 and 65535")
	}
	if c.ArtNet.Universe < 0 || c.ArtNet.Universe > MaxUniverse {
		errs = append(errs, "artnet.universe must be between 0 and 32767")
	}

	// DMX validation
	if c.DMX.StartChannel < MinChannel || c.DMX.StartChannel > MaxChannel {
		errs = append(errs, "dmx.start_channel must be between 1 and 512")
	}

	// Home Assistant validation. The token grants full control of the
	// automation platform, so it must come from config or environment
	// rather than being defaulted.
	if c.HomeAssistant.URL == "" {
		errs = append(errs, "homeassistant.url is required")
	}
	if c.HomeAssistant.Token == "" {
		errs = append(errs, "homeassistant.token is required (set ORCHESTREAM_HA_TOKEN environment variable)")
	}
	if c.HomeAssistant.ResponseTimeout < 1 {
		errs = append(errs, "homeassistant.response_timeout must be at least 1 second")
	}

	// Bridge validation
	if c.Bridge.ThrottleMS < 0 {
		errs = append(errs, "bridge.throttle_ms must not be negative")
	}
	if c.Bridge.CommandDelayMS < 0 {
		errs = append(errs, "bridge.command_delay_ms must not be negative")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// MQTT validation
	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetResponseTimeout returns the Home Assistant response timeout as a Duration.
func (c *Config) GetResponseTimeout() time.Duration {
	return time.Duration(c.HomeAssistant.ResponseTimeout) * time.Second
}

// GetThrottleInterval returns the per-device command throttle as a Duration.
func (c *Config) GetThrottleInterval() time.Duration {
	return time.Duration(c.Bridge.ThrottleMS) * time.Millisecond
}

// GetCommandDelay returns the inter-command pause as a Duration.
func (c *Config) GetCommandDelay() time.Duration {
	return time.Duration(c.Bridge.CommandDelayMS) * time.Millisecond
}
