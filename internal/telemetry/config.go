// Package telemetry wires OpenTelemetry tracing and metrics for the tracker
// client. Disabled telemetry yields no-op tracers and meters.
package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/srujanaA02/multi-tenant-saas/internal/config"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled        bool
	Endpoint       string
	Protocol       string // "grpc" or "http/protobuf"
	ServiceName    string
	ServiceVersion string
	Insecure       bool
	TLSSkipVerify  bool
	SampleRate     float64
	ExportInterval config.Duration
	ShutdownAfter  config.Duration
}

// NewDefaultConfig returns disabled telemetry pointed at a local collector.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled:        false,
		Endpoint:       "localhost:4317",
		Protocol:       "grpc",
		ServiceName:    "tracker",
		ServiceVersion: "0.1.0",
		Insecure:       true,
		SampleRate:     1.0,
		ExportInterval: config.Duration(15 * time.Second),
		ShutdownAfter:  config.Duration(5 * time.Second),
	}
}

// FromAppConfig overlays the application's telemetry section on defaults.
func FromAppConfig(cfg config.TelemetryConfig, version string) *Config {
	out := NewDefaultConfig()
	out.Enabled = cfg.Enabled
	out.Insecure = cfg.Insecure
	if cfg.Endpoint != "" {
		out.Endpoint = cfg.Endpoint
	}
	if cfg.Protocol != "" {
		out.Protocol = cfg.Protocol
	}
	if cfg.ServiceName != "" {
		out.ServiceName = cfg.ServiceName
	}
	if version != "" {
		out.ServiceVersion = version
	}
	return out
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when telemetry is enabled")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required when telemetry is enabled")
	}
	if c.Protocol != "grpc" && c.Protocol != "http/protobuf" {
		return fmt.Errorf("protocol must be 'grpc' or 'http/protobuf', got %q", c.Protocol)
	}
	if c.Insecure && !c.isLocalEndpoint() {
		return fmt.Errorf("insecure connections to remote endpoints are not allowed; set insecure=false or use a local endpoint")
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample rate must be between 0 and 1, got %f", c.SampleRate)
	}
	if c.ExportInterval.Duration() <= 0 {
		return fmt.Errorf("export interval must be positive")
	}
	if c.ShutdownAfter.Duration() <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

func (c *Config) isLocalEndpoint() bool {
	host := stripScheme(c.Endpoint)
	if strings.HasPrefix(host, "[") {
		if idx := strings.Index(host, "]"); idx != -1 {
			host = host[1:idx]
		}
	} else if strings.Count(host, ":") == 1 {
		host = host[:strings.LastIndex(host, ":")]
	}
	return host == "localhost" || host == "::1" || strings.HasPrefix(host, "127.")
}
