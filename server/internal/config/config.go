package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort        = 3001
	DefaultLogLevel        = "info"
	DefaultDriver          = DriverMemory
	DefaultURIEnv          = "STORE_URI"
	DefaultDatabase        = "fieldwatch"
	DefaultCollection      = "dashboards"
	DefaultConnectTimeout  = 10 * time.Second
	DefaultBreakerFailures = 5
	DefaultBreakerOpenFor  = 30 * time.Second
	DefaultStreamInterval  = 5 * time.Second
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverMongo  = "mongodb"
	DriverBolt   = "bolt"
)

// ErrMissingURI is returned by Load when a persistent driver is selected but
// its connection string is not set.
var ErrMissingURI = errors.New("store connection string is required")

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Fixture FixtureConfig `yaml:"fixture"`
	Stream  StreamConfig  `yaml:"stream"`
}

// ServerConfig holds listener and logging settings.
type ServerConfig struct {
	// HTTPPort is the port the API, health and metrics endpoints listen on.
	HTTPPort int `yaml:"http_port"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`
}

// StoreConfig selects and tunes the persistence adapter.
type StoreConfig struct {
	// Driver is one of: memory | mongodb | bolt.
	Driver string `yaml:"driver"`

	// URIEnv is the name of the environment variable that holds the
	// connection string (a mongodb:// URI, or a file path for bolt).
	URIEnv string `yaml:"uri_env"`

	// Database is the mongodb database name. Ignored by other drivers.
	Database string `yaml:"database"`

	// Collection is the mongodb collection or bolt bucket holding {name, data} records.
	Collection string `yaml:"collection"`

	// ConnectTimeout bounds the whole startup connect attempt, retries included.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// Breaker configures the read-path circuit breaker.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the read-path circuit breaker.
type BreakerConfig struct {
	// Failures is the number of consecutive failed reads that opens the breaker.
	Failures int `yaml:"failures"`

	// OpenFor is how long the breaker rejects reads before probing again.
	OpenFor time.Duration `yaml:"open_for"`
}

// URI returns the connection string resolved from the environment.
func (s StoreConfig) URI() string {
	if s.URIEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(s.URIEnv))
}

// Persistent reports whether the driver needs a connection string.
func (s StoreConfig) Persistent() bool {
	return s.Driver == DriverMongo || s.Driver == DriverBolt
}

// FixtureConfig tunes the embedded fixture.
type FixtureConfig struct {
	// Seed drives the generated dashboard chart data. 0 picks a time-based seed.
	Seed int64 `yaml:"seed"`
}

// StreamConfig controls the optional /ws/telemetry broadcast.
type StreamConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Level parses Server.LogLevel into a slog.Level.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Server.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Load reads and parses the config file at path (skipped when path is empty),
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("server config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("server config: parse yaml: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			LogLevel: DefaultLogLevel,
		},
		Store: StoreConfig{
			Driver:         DefaultDriver,
			URIEnv:         DefaultURIEnv,
			Database:       DefaultDatabase,
			Collection:     DefaultCollection,
			ConnectTimeout: DefaultConnectTimeout,
			Breaker: BreakerConfig{
				Failures: DefaultBreakerFailures,
				OpenFor:  DefaultBreakerOpenFor,
			},
		},
		Stream: StreamConfig{
			Interval: DefaultStreamInterval,
		},
	}
}

// applyEnv overlays the recognised environment variables onto cfg.
func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT %q is not a number", v)
		}
		cfg.Server.HTTPPort = n
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("STORE_DRIVER")); v != "" {
		cfg.Store.Driver = v
	}
	return nil
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(cfg.Server.LogLevel)); err != nil {
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", cfg.Server.LogLevel)
	}
	switch cfg.Store.Driver {
	case DriverMemory, DriverMongo, DriverBolt:
	default:
		return fmt.Errorf("store.driver %q unknown: want memory|mongodb|bolt", cfg.Store.Driver)
	}
	if cfg.Store.Persistent() && cfg.Store.URI() == "" {
		return fmt.Errorf("store.driver %s: %w (set $%s)", cfg.Store.Driver, ErrMissingURI, cfg.Store.URIEnv)
	}
	if cfg.Store.Collection == "" {
		return fmt.Errorf("store.collection must not be empty")
	}
	if cfg.Store.ConnectTimeout <= 0 {
		return fmt.Errorf("store.connect_timeout must be positive")
	}
	if cfg.Store.Breaker.Failures < 1 {
		return fmt.Errorf("store.breaker.failures must be at least 1")
	}
	if cfg.Store.Breaker.OpenFor < 0 {
		return fmt.Errorf("store.breaker.open_for must not be negative")
	}
	if cfg.Stream.Enabled && cfg.Stream.Interval <= 0 {
		return fmt.Errorf("stream.interval must be positive when the stream is enabled")
	}
	return nil
}
