package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for reeflink.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Controller  ControllerConfig  `yaml:"controller"`
	Poll        PollConfig        `yaml:"poll"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	API         APIConfig         `yaml:"api"`
	Database    DatabaseConfig    `yaml:"database"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
	Calibration CalibrationConfig `yaml:"calibration"`
}

// ControllerConfig contains reef-pi controller connection settings.
type ControllerConfig struct {
	// Host is the base URL of the reef-pi controller (e.g., "https://192.168.1.50").
	Host string `yaml:"host"`

	// Username and Password are the reef-pi sign-in credentials.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// VerifyTLS controls certificate verification. reef-pi installs
	// commonly run with self-signed certificates, so false is a valid
	// setting on a trusted LAN.
	VerifyTLS bool `yaml:"verify_tls"`

	// Timeout is the per-request timeout in seconds.
	Timeout int `yaml:"timeout"`
}

// PollConfig contains refresh cycle settings.
type PollConfig struct {
	// Interval is the refresh period in seconds.
	Interval int `yaml:"interval"`

	// CycleTimeout is the wall-clock budget for one full refresh cycle
	// in seconds. On expiry the cycle is abandoned and treated as a
	// connection failure.
	CycleTimeout int `yaml:"cycle_timeout"`

	// SkipThreshold is the age in seconds under which a push update is
	// considered fresh enough to skip polling that device.
	SkipThreshold int `yaml:"skip_threshold"`

	// DisablePH administratively disables pH polling even when the
	// controller advertises the capability. The probe catalog remains
	// available for calibration.
	DisablePH bool `yaml:"disable_ph"`
}

// MQTTConfig contains MQTT broker connection settings for the push channel.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// TopicPrefix is the root of the reef-pi topic tree to subscribe to.
	TopicPrefix string `yaml:"topic_prefix"`

	// Enabled controls whether the push channel is used at all.
	// Polling works without it.
	Enabled bool `yaml:"enabled"`
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

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	CORS      CORSConfig       `yaml:"cors"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
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
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// DatabaseConfig contains SQLite database settings for reading history.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// HistoryRetention is how long reading history is kept, in hours.
	HistoryRetention int `yaml:"history_retention"`
}

// InfluxDBConfig contains InfluxDB connection settings for telemetry.
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

// CalibrationConfig contains pH calibration workflow settings.
type CalibrationConfig struct {
	// WaitSeconds is the settle window per calibration point.
	WaitSeconds int `yaml:"wait_seconds"`

	// ProgressStep is the live-reading sample interval in seconds.
	ProgressStep int `yaml:"progress_step"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: REEFLINK_SECTION_KEY
// For example: REEFLINK_CONTROLLER_HOST, REEFLINK_MQTT_HOST
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
		Controller: ControllerConfig{
			Timeout: 15,
		},
		Poll: PollConfig{
			Interval:      60,
			CycleTimeout:  15,
			SkipThreshold: 120,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "reeflink",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			TopicPrefix: "reef-pi",
			Enabled:     true,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8086,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			WebSocket: WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    60,
			},
		},
		Database: DatabaseConfig{
			Path:             "./data/reeflink.db",
			WALMode:          true,
			BusyTimeout:      5,
			HistoryRetention: 168,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Calibration: CalibrationConfig{
			WaitSeconds:  300,
			ProgressStep: 15,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: REEFLINK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Controller
	if v := os.Getenv("REEFLINK_CONTROLLER_HOST"); v != "" {
		cfg.Controller.Host = v
	}
	if v := os.Getenv("REEFLINK_CONTROLLER_USERNAME"); v != "" {
		cfg.Controller.Username = v
	}
	if v := os.Getenv("REEFLINK_CONTROLLER_PASSWORD"); v != "" {
		cfg.Controller.Password = v
	}

	// Poll
	if v := os.Getenv("REEFLINK_POLL_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Poll.Interval = n
		}
	}

	// MQTT
	if v := os.Getenv("REEFLINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("REEFLINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("REEFLINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("REEFLINK_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// Database
	if v := os.Getenv("REEFLINK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("REEFLINK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Controller.Host == "" {
		errs = append(errs, "controller.host is required")
	}
	if c.Controller.Username == "" {
		errs = append(errs, "controller.username is required (set REEFLINK_CONTROLLER_USERNAME environment variable)")
	}
	if c.Controller.Password == "" {
		errs = append(errs, "controller.password is required (set REEFLINK_CONTROLLER_PASSWORD environment variable)")
	}
	if c.Controller.Timeout <= 0 {
		errs = append(errs, "controller.timeout must be positive")
	}

	if c.Poll.Interval <= 0 {
		errs = append(errs, "poll.interval must be positive")
	}
	if c.Poll.CycleTimeout <= 0 {
		errs = append(errs, "poll.cycle_timeout must be positive")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Calibration.WaitSeconds <= 0 {
		errs = append(errs, "calibration.wait_seconds must be positive")
	}
	if c.Calibration.ProgressStep <= 0 {
		errs = append(errs, "calibration.progress_step must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetControllerTimeout returns the controller request timeout as a Duration.
func (c *Config) GetControllerTimeout() time.Duration {
	return time.Duration(c.Controller.Timeout) * time.Second
}

// GetPollInterval returns the refresh period as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Poll.Interval) * time.Second
}

// GetCycleTimeout returns the per-cycle budget as a Duration.
func (c *Config) GetCycleTimeout() time.Duration {
	return time.Duration(c.Poll.CycleTimeout) * time.Second
}

// GetSkipThreshold returns the push freshness threshold as a Duration.
func (c *Config) GetSkipThreshold() time.Duration {
	return time.Duration(c.Poll.SkipThreshold) * time.Second
}

// GetHistoryRetention returns the reading history retention as a Duration.
func (c *Config) GetHistoryRetention() time.Duration {
	return time.Duration(c.Database.HistoryRetention) * time.Hour
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

// GetCalibrationWait returns the per-point settle window as a Duration.
func (c *Config) GetCalibrationWait() time.Duration {
	return time.Duration(c.Calibration.WaitSeconds) * time.Second
}

// GetCalibrationStep returns the live-reading sample interval as a Duration.
func (c *Config) GetCalibrationStep() time.Duration {
	return time.Duration(c.Calibration.ProgressStep) * time.Second
}
