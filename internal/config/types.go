package config

import (
	"fmt"
	"time"
)

// Duration is a time.Duration read from text such as "30s" in YAML or
// TRACKER_API_TIMEOUT.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if parsed < 0 {
		return fmt.Errorf("duration cannot be negative: %s", text)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Secret is a credential from config, such as the dev server signing key.
// It formats as [REDACTED]; Value returns the raw string.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

func (s Secret) Value() string { return string(s) }

func (s Secret) IsSet() bool { return s != "" }

func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(text)
	return nil
}
