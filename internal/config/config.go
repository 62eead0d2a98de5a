// Package config handles configuration loading, validation, and
// persistence for MCNap.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	DefaultConfigDir  = "config"
	DefaultConfigFile = "config.json"
	DefaultIconFile   = "server-icon.png"

	DefaultPollIntervalSec = 60
	DefaultIdleTimeoutSec  = 600
	DefaultRconHost        = "127.0.0.1"
)

// Config is the root configuration structure for MCNap. The file is
// created with defaults on first run and re-saved after every load so
// newly added fields appear for the operator to edit.
type Config struct {
	mu   sync.RWMutex
	path string

	Motd          MessageStyle    `json:"motd"`
	ConnectionMsg MessageStyle    `json:"connection_message"`
	Rcon          RconData        `json:"rcon"`
	ServerIcon    string          `json:"server_icon"`
	API           APIConfig       `json:"api"`
	Telemetry     TelemetryConfig `json:"telemetry"`
	Journal       JournalConfig   `json:"journal"`
	Logging       LoggingConfig   `json:"logging"`
}

// MessageStyle is a styled text shown to clients: the MOTD in the
// server list, or the disconnect message on the activating login.
type MessageStyle struct {
	Text  string `json:"text"`
	Color string `json:"color"`
	Bold  bool   `json:"bold"`
}

// RconData holds the watchdog's RCON settings. Port and password come
// from the command line and are not persisted.
type RconData struct {
	Host            string `json:"host"`
	PollIntervalSec int    `json:"poll_interval_sec"`
	IdleTimeoutSec  int    `json:"idle_timeout_sec"`
}

// APIConfig controls the optional HTTP status endpoint.
type APIConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

// TelemetryConfig controls the optional MQTT publisher.
type TelemetryConfig struct {
	Enabled   bool   `json:"enabled"`
	BrokerURL string `json:"broker_url"`
	Port      int    `json:"port"`
	ClientID  string `json:"client_id"`
	UseTLS    bool   `json:"use_tls"`
}

// JournalConfig controls the SQLite session journal.
type JournalConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level      string `json:"level"`
	Directory  string `json:"directory"`
	MaxBackups int    `json:"max_backups"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Motd: MessageStyle{
			Text:  "Napping... Join to start server",
			Color: "aqua",
			Bold:  true,
		},
		ConnectionMsg: MessageStyle{
			Text:  "Server is now starting up. Please wait and try again shortly...",
			Color: "light_purple",
			Bold:  true,
		},
		Rcon: RconData{
			Host:            DefaultRconHost,
			PollIntervalSec: DefaultPollIntervalSec,
			IdleTimeoutSec:  DefaultIdleTimeoutSec,
		},
		API: APIConfig{
			Enabled: false,
			Port:    5600,
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
			Port:    8883,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(DefaultConfigDir, "sessions.db"),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Directory:  "logs",
			MaxBackups: 5,
		},
	}
}

// Load reads the configuration from dir, creating the directory and a
// default file when missing. The effective config is always written
// back so the file on disk reflects every known field.
func Load(dir string) (*Config, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	cfg := Default()
	cfg.path = filepath.Join(dir, DefaultConfigFile)

	data, err := os.ReadFile(cfg.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Info().Str("path", cfg.path).Msg("no configuration file found, creating defaults")
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", cfg.path, err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", cfg.path, err)
		}
	}

	if err := cfg.Save(); err != nil {
		return nil, err
	}

	log.Info().Str("path", cfg.path).Msg("configuration loaded")
	return cfg, nil
}

// Save writes the configuration back to its file.
func (c *Config) Save() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(c.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing config %s: %w", c.path, err)
	}
	return nil
}

// Path returns the backing file path.
func (c *Config) Path() string {
	return c.path
}

// IconPath returns the configured icon path, defaulting to
// config/server-icon.png next to the config file.
func (c *Config) IconPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ServerIcon != "" {
		return c.ServerIcon
	}
	return filepath.Join(filepath.Dir(c.path), DefaultIconFile)
}
