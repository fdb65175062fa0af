// Package config loads gridchat settings from a JSON file with
// environment-variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable the chat client needs.
type Config struct {
	// ServerURL is the http(s) base of the chat service; the websocket
	// url is derived from it.
	ServerURL  string `json:"server_url" env:"GRIDCHAT_SERVER_URL"`
	SocketPath string `json:"socket_path" env:"GRIDCHAT_SOCKET_PATH"`
	Token      string `json:"token" env:"GRIDCHAT_TOKEN"`
	Workspace  string `json:"workspace" env:"GRIDCHAT_WORKSPACE"`

	ReconnectDelayMS int `json:"reconnect_delay_ms" env:"GRIDCHAT_RECONNECT_DELAY_MS"`
	PollIntervalMS   int `json:"poll_interval_ms" env:"GRIDCHAT_POLL_INTERVAL_MS"`

	Debug bool `json:"debug" env:"GRIDCHAT_DEBUG"`
}

// DefaultConfig returns the defaults the original client shipped with:
// a local backend, 3000 ms reconnect delay and 3000 ms roster polling.
func DefaultConfig() *Config {
	return &Config{
		ServerURL:        "http://127.0.0.1:8000",
		SocketPath:       "/ws",
		ReconnectDelayMS: 3000,
		PollIntervalMS:   3000,
	}
}

// LoadConfig reads the JSON config at path (missing file is fine, defaults
// apply) and then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: env overrides: %w", err)
	}
	return cfg, nil
}

// SocketURL derives the ws(s) endpoint from the server base url.
func (c *Config) SocketURL() (string, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", fmt.Errorf("config: server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	case "ws", "wss":
		// already a socket url
	default:
		return "", fmt.Errorf("config: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + c.SocketPath
	return u.String(), nil
}

// WorkspacePath resolves the workspace directory, defaulting to
// ~/.gridchat.
func (c *Config) WorkspacePath() string {
	if c.Workspace != "" {
		return c.Workspace
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".gridchat")
}

// ReconnectDelay returns the reconnect backoff as a duration.
func (c *Config) ReconnectDelay() time.Duration {
	if c.ReconnectDelayMS <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.ReconnectDelayMS) * time.Millisecond
}

// PollInterval returns the roster polling interval as a duration.
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}
