package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:8000", cfg.Server.URL)
	assert.Equal(t, 15*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 100, cfg.Chat.FetchLimit)
	assert.Equal(t, 5*time.Second, cfg.Chat.KeepaliveInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "default", cfg.TUI.Theme)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad scheme", func(c *Config) { c.Server.URL = "ftp://example.com" }},
		{"missing host", func(c *Config) { c.Server.URL = "http://" }},
		{"zero timeout", func(c *Config) { c.Server.Timeout = 0 }},
		{"zero fetch limit", func(c *Config) { c.Chat.FetchLimit = 0 }},
		{"zero keepalive", func(c *Config) { c.Chat.KeepaliveInterval = 0 }},
		{"keepalive past idle timeout", func(c *Config) { c.Chat.KeepaliveInterval = 25 * time.Second }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  url: https://chat.example.com
  timeout: 30s
chat:
  fetch_limit: 250
tui:
  theme: high-contrast
  show_timestamps: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com", cfg.Server.URL)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 250, cfg.Chat.FetchLimit)
	assert.Equal(t, "high-contrast", cfg.TUI.Theme)
	assert.True(t, cfg.TUI.ShowTimestamps)

	// Unset keys keep their defaults.
	assert.Equal(t, 5*time.Second, cfg.Chat.KeepaliveInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidFileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  url: ftp://nope\n"), 0o644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CHATTERM_SERVER_URL", "https://env.example.com")
	t.Setenv("CHATTERM_CHAT_FETCH_LIMIT", "42")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.Server.URL)
	assert.Equal(t, 42, cfg.Chat.FetchLimit)
}

func TestSetOverridesEverything(t *testing.T) {
	t.Setenv("CHATTERM_SERVER_URL", "https://env.example.com")

	loader := NewLoader()
	loader.Set("server.url", "https://flag.example.com")

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "https://flag.example.com", cfg.Server.URL)
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "chatterm.log"), expandTilde("~/chatterm.log"))
	assert.Equal(t, home, expandTilde("~"))
	assert.Equal(t, "/var/log/chatterm.log", expandTilde("/var/log/chatterm.log"))
	assert.Equal(t, "", expandTilde(""))
}
