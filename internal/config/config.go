// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ashureev/chatline/internal/transport"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	ServerURL string          `envconfig:"CHAT_SERVER_URL" default:"ws://localhost:8080/chat"`
	Reconnect ReconnectConfig `envconfig:"RECONNECT"`
	// DialTimeout bounds a single connection attempt. Zero means no bound.
	DialTimeout    time.Duration `envconfig:"DIAL_TIMEOUT" default:"10s"`
	SessionDBPath  string        `envconfig:"SESSION_DB_PATH" default:"./data/chatline.db"`
	PersistSession bool          `envconfig:"PERSIST_SESSION" default:"true"`
	EventBuffer    int           `envconfig:"EVENT_BUFFER" default:"64"`
	StatusAddr     string        `envconfig:"STATUS_ADDR"`
	// StatusOrigins lists browser origins allowed to read the status API.
	StatusOrigins []string `envconfig:"STATUS_ALLOWED_ORIGINS"`
	LogLevel      string   `envconfig:"LOG_LEVEL" default:"info"`
}

// ReconnectConfig controls how a dropped connection is retried. Keys are
// prefixed with RECONNECT_.
type ReconnectConfig struct {
	Policy      string        `envconfig:"POLICY" default:"exponential"`
	Delay       time.Duration `envconfig:"DELAY" default:"2s"`
	MaxDelay    time.Duration `envconfig:"MAX_DELAY" default:"1m"`
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("CHAT_SERVER_URL cannot be empty")
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("CHAT_SERVER_URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("CHAT_SERVER_URL must be a ws, wss, http or https URL, got %q", c.ServerURL)
	}
	if err := c.ReconnectPolicy().Validate(); err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}
	if c.DialTimeout < 0 {
		return fmt.Errorf("DIAL_TIMEOUT must be >= 0")
	}
	if c.PersistSession && c.SessionDBPath == "" {
		return fmt.Errorf("SESSION_DB_PATH cannot be empty when PERSIST_SESSION is set")
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("EVENT_BUFFER must be > 0")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ReconnectPolicy converts the reconnect settings into a transport policy.
func (c *Config) ReconnectPolicy() transport.Policy {
	return transport.Policy{
		Kind:        transport.PolicyKind(strings.ToLower(c.Reconnect.Policy)),
		Delay:       c.Reconnect.Delay,
		MaxDelay:    c.Reconnect.MaxDelay,
		MaxAttempts: c.Reconnect.MaxAttempts,
	}
}

// Level returns the configured slog level, falling back to info.
func (c *Config) Level() slog.Level {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}
