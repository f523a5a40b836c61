// Package config defines the configuration recognized by ari.Connect and
// an optional YAML loader for operator-supplied defaults.
package config

import (
	"os"
	"time"

	"goa.design/ari-client/internal/telemetry"
	"gopkg.in/yaml.v3"
)

// Config is the configuration recognized by ari.Connect. Unknown keys
// encountered while loading from a file are ignored.
type Config struct {
	BaseURL  string
	Username string
	Password string

	// ReconnectCeiling caps the WebSocket Session's exponential backoff
	// between reconnect attempts. Zero selects the session's default.
	ReconnectCeiling time.Duration
	// MaxConsecutiveFailures bounds the number of consecutive failed
	// reconnect attempts before the session gives up and emits
	// WebSocketMaxRetries. Zero selects the session's default.
	MaxConsecutiveFailures int
	// IdleTimeout triggers a reconnect if no frame arrives within this
	// window. Zero selects the session's default.
	IdleTimeout time.Duration

	// Logger and Tracer default to no-ops when unset.
	Logger telemetry.Logger
	Tracer telemetry.Tracer
}

// fileConfig mirrors the on-disk YAML shape.
type fileConfig struct {
	BaseURL                string `yaml:"baseUrl"`
	Username               string `yaml:"username"`
	Password               string `yaml:"password"`
	ReconnectCeilingMs     int    `yaml:"reconnectCeilingMs"`
	MaxConsecutiveFailures int    `yaml:"maxConsecutiveFailures"`
	IdleTimeoutMs          int    `yaml:"idleTimeoutMs"`
}

// Load reads a YAML configuration file at path. Keys it does not recognize
// are ignored. Fields absent from the file are left at
// their zero value; callers typically overlay explicit overrides on top
// of the result before calling ari.Connect.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, err
	}
	return Config{
		BaseURL:                fc.BaseURL,
		Username:               fc.Username,
		Password:               fc.Password,
		ReconnectCeiling:       time.Duration(fc.ReconnectCeilingMs) * time.Millisecond,
		MaxConsecutiveFailures: fc.MaxConsecutiveFailures,
		IdleTimeout:            time.Duration(fc.IdleTimeoutMs) * time.Millisecond,
	}, nil
}
