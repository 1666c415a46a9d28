// Package config handles chatterm configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the root configuration structure for chatterm.
type Config struct {
	// Server settings
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Chat behavior settings
	Chat ChatConfig `yaml:"chat" mapstructure:"chat"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// ServerConfig contains connection settings for the chatinterface server.
type ServerConfig struct {
	// URL is the server base URL (http or https).
	URL string `yaml:"url" mapstructure:"url"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ChatConfig contains synchronization settings.
type ChatConfig struct {
	// FetchLimit is how many messages the initial history load requests
	// per conversation.
	FetchLimit int `yaml:"fetch_limit" mapstructure:"fetch_limit"`

	// KeepaliveInterval is the push channel liveness cadence. Must stay
	// under the server's 20s idle timeout.
	KeepaliveInterval time.Duration `yaml:"keepalive_interval" mapstructure:"keepalive_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// TUIConfig contains view settings.
type TUIConfig struct {
	// Theme selects the color theme (default, high-contrast).
	Theme string `yaml:"theme" mapstructure:"theme"`

	// ShowTimestamps renders each message's send date.
	ShowTimestamps bool `yaml:"show_timestamps" mapstructure:"show_timestamps"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:     "http://localhost:8000",
			Timeout: 15 * time.Second,
		},
		Chat: ChatConfig{
			FetchLimit:        100,
			KeepaliveInterval: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		TUI: TUIConfig{
			Theme:          "default",
			ShowTimestamps: false,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	parsed, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("server.url: scheme must be http or https, got %q", c.Server.URL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("server.url: missing host in %q", c.Server.URL)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Chat.FetchLimit <= 0 {
		return fmt.Errorf("chat.fetch_limit must be positive, got %d", c.Chat.FetchLimit)
	}
	if c.Chat.KeepaliveInterval <= 0 || c.Chat.KeepaliveInterval >= 20*time.Second {
		return fmt.Errorf("chat.keepalive_interval must be between 0 and the server's 20s idle timeout, got %s", c.Chat.KeepaliveInterval)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
