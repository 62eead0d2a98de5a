package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, DefaultConfigFile)); err != nil {
		t.Errorf("config file not created: %v", err)
	}
	if cfg.Rcon.PollIntervalSec != DefaultPollIntervalSec {
		t.Errorf("poll interval = %d, want %d", cfg.Rcon.PollIntervalSec, DefaultPollIntervalSec)
	}
	if cfg.Motd.Text == "" {
		t.Error("default MOTD is empty")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg.Motd.Text = "Custom MOTD"
	cfg.Rcon.IdleTimeoutSec = 120
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Motd.Text != "Custom MOTD" {
		t.Errorf("MOTD = %q", reloaded.Motd.Text)
	}
	if reloaded.Rcon.IdleTimeoutSec != 120 {
		t.Errorf("idle timeout = %d, want 120", reloaded.Rcon.IdleTimeoutSec)
	}
}

func TestIconPathDefault(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := filepath.Join(dir, DefaultIconFile)
	if got := cfg.IconPath(); got != want {
		t.Errorf("IconPath = %q, want %q", got, want)
	}

	cfg.ServerIcon = "/custom/icon.png"
	if got := cfg.IconPath(); got != "/custom/icon.png" {
		t.Errorf("IconPath = %q, want /custom/icon.png", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Config)
		wantValid  bool
		wantField  string
		inWarnings bool
	}{
		{"defaults are valid", func(c *Config) {}, true, "", false},
		{"missing rcon host", func(c *Config) { c.Rcon.Host = " " }, false, "rcon.host", false},
		{"zero poll interval", func(c *Config) { c.Rcon.PollIntervalSec = 0 }, false, "rcon.poll_interval_sec", false},
		{"zero idle timeout", func(c *Config) { c.Rcon.IdleTimeoutSec = 0 }, false, "rcon.idle_timeout_sec", false},
		{"poll slower than timeout", func(c *Config) {
			c.Rcon.PollIntervalSec = 600
			c.Rcon.IdleTimeoutSec = 60
		}, true, "rcon.poll_interval_sec", true},
		{"unknown color", func(c *Config) { c.Motd.Color = "ultraviolet" }, true, "motd.color", true},
		{"bad api port when enabled", func(c *Config) {
			c.API.Enabled = true
			c.API.Port = 70000
		}, false, "api.port", false},
		{"bad api port ignored when disabled", func(c *Config) { c.API.Port = 70000 }, true, "", false},
		{"telemetry without broker", func(c *Config) { c.Telemetry.Enabled = true }, false, "telemetry.broker_url", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			result := Validate(cfg)

			if result.IsValid() != tt.wantValid {
				t.Errorf("IsValid = %t, want %t (errors: %v)", result.IsValid(), tt.wantValid, result.Errors)
			}

			if tt.wantField == "" {
				return
			}
			list := result.Errors
			if tt.inWarnings {
				list = result.Warnings
			}
			found := false
			for _, e := range list {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("field %q not flagged (errors %v, warnings %v)", tt.wantField, result.Errors, result.Warnings)
			}
		})
	}
}
