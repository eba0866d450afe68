package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/surgify/islandkit/errors"
)

// Config is the complete host configuration.
type Config struct {
	// Version is the config schema version, semver-style
	Version string `json:"version"`
	// Environment tags the deployment ("prod", "dev", "test")
	Environment string `json:"environment,omitempty"`
	Server      Server `json:"server"`
	Relay       Relay  `json:"relay,omitempty"`
	Logging     Logging `json:"logging,omitempty"`
}

// Server holds the HTTP surface settings.
type Server struct {
	// ListenAddr serves pages, the live WebSocket, and health
	ListenAddr string `json:"listen_addr"`
	// MetricsAddr serves Prometheus metrics; empty disables the endpoint
	MetricsAddr string `json:"metrics_addr,omitempty"`
	// BackendURL is the fragment-serving backend for partial updates
	BackendURL string `json:"backend_url"`
	// OperationTimeout bounds server calls made from island callbacks
	OperationTimeout Duration `json:"operation_timeout,omitempty"`
}

// Relay holds broker settings for cross-session group traffic.
type Relay struct {
	Enabled       bool   `json:"enabled"`
	URL           string `json:"url,omitempty"`
	SubjectPrefix string `json:"subject_prefix,omitempty"`
}

// Logging holds log output settings.
type Logging struct {
	// Level is one of "debug", "info", "warn", "error"
	Level string `json:"level,omitempty"`
	// Format is "json" or "text"
	Format string `json:"format,omitempty"`
}

// Duration wraps time.Duration with JSON string encoding ("15s", "2m").
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Version:     "1.0.0",
		Environment: "dev",
		Server: Server{
			ListenAddr:       ":8080",
			MetricsAddr:      ":9090",
			BackendURL:       "http://localhost:3000",
			OperationTimeout: Duration(15 * time.Second),
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads and validates a JSON configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator's flag
	if err != nil {
		return nil, errors.Wrap(err, "Config", "Load", "file read")
	}

	cfg := Default()
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Load", "json decode")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the host cannot run with.
func (c *Config) Validate() error {
	if c.Version == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: version is required", errors.ErrInvalidConfig),
			"Config", "Validate", "version check")
	}
	if c.Server.ListenAddr == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: server.listen_addr is required", errors.ErrInvalidConfig),
			"Config", "Validate", "listen address check")
	}
	if c.Server.BackendURL == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: server.backend_url is required", errors.ErrInvalidConfig),
			"Config", "Validate", "backend url check")
	}
	if c.Relay.Enabled && c.Relay.URL == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: relay.url is required when relay is enabled", errors.ErrInvalidConfig),
			"Config", "Validate", "relay url check")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: unknown log level %q", errors.ErrInvalidConfig, c.Logging.Level),
			"Config", "Validate", "log level check")
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: unknown log format %q", errors.ErrInvalidConfig, c.Logging.Format),
			"Config", "Validate", "log format check")
	}

	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}

	return &clone
}

// SafeConfig provides thread-safe access to configuration.
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{config: cfg}
}

// Get returns a deep copy of the current configuration.
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validation.
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "SafeConfig", "Update", "nil config check")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}
