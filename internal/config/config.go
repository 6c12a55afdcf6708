// Package config provides configuration loading for the tracker client.
//
// Configuration is layered: hardcoded defaults, then an optional YAML file,
// then TRACKER_* environment variables. See LoadWithFile for details.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the complete tracker client configuration.
type Config struct {
	API       APIConfig       `koanf:"api"`
	Session   SessionConfig   `koanf:"session"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	DevServer DevServerConfig `koanf:"devserver"`
}

// APIConfig configures the request pipeline to the remote tracker service.
type APIConfig struct {
	BaseURL   string   `koanf:"base_url"`
	Timeout   Duration `koanf:"timeout"`
	RateLimit float64  `koanf:"rate_limit"` // requests per second, 0 disables the limiter
	Burst     int      `koanf:"burst"`
}

// SessionConfig configures where and how the session is persisted.
type SessionConfig struct {
	Path           string `koanf:"path"`
	ValidateExpiry bool   `koanf:"validate_expiry"`
}

// LoggingConfig selects log verbosity and encoding.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	Protocol    string `koanf:"protocol"`
	ServiceName string `koanf:"service_name"`
	Insecure    bool   `koanf:"insecure"`
}

// DevServerConfig configures the local stand-in for the remote service.
type DevServerConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	SigningKey Secret `koanf:"signing_key"`
}

// Default returns a Config populated with defaults only.
func Default() *Config {
	cfg := &Config{
		Session: SessionConfig{ValidateExpiry: true},
	}
	applyDefaults(cfg)
	return cfg
}

// SessionPath returns the session file path with a leading ~ expanded.
func (c *Config) SessionPath() (string, error) {
	return expandHome(c.Session.Path)
}

// Validate validates the configuration.
//
// Returns an error if:
//   - the API base URL is not an absolute http(s) URL
//   - the API timeout is not positive
//   - the rate limit is negative, or positive with a burst below 1
//   - the logging format is not json or console
//   - the dev server port is outside 1-65535
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid api.base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api.base_url %q: must be an absolute http(s) URL", c.API.BaseURL)
	}

	if c.API.Timeout.Duration() <= 0 {
		return errors.New("api.timeout must be positive")
	}

	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must be >= 0, got %v", c.API.RateLimit)
	}
	if c.API.RateLimit > 0 && c.API.Burst < 1 {
		return fmt.Errorf("api.burst must be >= 1 when rate limiting, got %d", c.API.Burst)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if c.DevServer.Port < 1 || c.DevServer.Port > 65535 {
		return fmt.Errorf("invalid devserver.port: %d (must be 1-65535)", c.DevServer.Port)
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry.endpoint required when telemetry is enabled")
	}

	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:5000/api"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = Duration(30 * time.Second)
	}
	if cfg.API.RateLimit == 0 && cfg.API.Burst == 0 {
		cfg.API.RateLimit = 20
		cfg.API.Burst = 10
	}

	if cfg.Session.Path == "" {
		cfg.Session.Path = "~/.config/tracker/session.json"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "tracker"
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}

	if cfg.DevServer.Host == "" {
		cfg.DevServer.Host = "localhost"
	}
	if cfg.DevServer.Port == 0 {
		cfg.DevServer.Port = 5000
	}
	if !cfg.DevServer.SigningKey.IsSet() {
		cfg.DevServer.SigningKey = Secret("tracker-dev-signing-key")
	}
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
