package config

import (
	"fmt"
	"strings"
)

// Chat colors accepted by the vanilla client. An unknown color is a
// warning, not an error: the client falls back to white.
var knownColors = map[string]bool{
	"black": true, "dark_blue": true, "dark_green": true, "dark_aqua": true,
	"dark_red": true, "dark_purple": true, "gold": true, "gray": true,
	"dark_gray": true, "blue": true, "green": true, "aqua": true,
	"red": true, "light_purple": true, "yellow": true, "white": true,
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationResult holds the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning adds a validation warning.
func (r *ValidationResult) AddWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

// Validate checks the configuration for values that would break the
// run (errors) or surprise the operator (warnings).
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	validateMessage("motd", &cfg.Motd, result)
	validateMessage("connection_message", &cfg.ConnectionMsg, result)

	if strings.TrimSpace(cfg.Rcon.Host) == "" {
		result.AddError("rcon.host", "RCON host is required")
	}
	if cfg.Rcon.PollIntervalSec < 1 {
		result.AddError("rcon.poll_interval_sec", "poll interval must be at least 1 second")
	}
	if cfg.Rcon.IdleTimeoutSec < 1 {
		result.AddError("rcon.idle_timeout_sec", "idle timeout must be at least 1 second")
	}
	if cfg.Rcon.IdleTimeoutSec > 0 && cfg.Rcon.PollIntervalSec > cfg.Rcon.IdleTimeoutSec {
		result.AddWarning("rcon.poll_interval_sec",
			"poll interval exceeds idle timeout, shutdown will lag behind by up to one poll")
	}

	if cfg.API.Enabled {
		validatePort(cfg.API.Port, "api.port", result)
	}

	if cfg.Telemetry.Enabled {
		if strings.TrimSpace(cfg.Telemetry.BrokerURL) == "" {
			result.AddError("telemetry.broker_url", "MQTT broker URL is required when enabled")
		}
		validatePort(cfg.Telemetry.Port, "telemetry.port", result)
	}

	if cfg.Journal.Enabled && strings.TrimSpace(cfg.Journal.Path) == "" {
		result.AddError("journal.path", "journal path is required when enabled")
	}

	return result
}

func validateMessage(field string, msg *MessageStyle, result *ValidationResult) {
	if strings.TrimSpace(msg.Text) == "" {
		result.AddWarning(field+".text", "message text is empty")
	}
	if msg.Color != "" && !knownColors[msg.Color] {
		result.AddWarning(field+".color",
			fmt.Sprintf("unknown chat color %q, clients will render white", msg.Color))
	}
}

func validatePort(port int, field string, result *ValidationResult) {
	if port < 1 || port > 65535 {
		result.AddError(field, fmt.Sprintf("invalid port number: %d (must be 1-65535)", port))
		return
	}
	if port < 1024 {
		result.AddWarning(field,
			fmt.Sprintf("port %d is a privileged port, may require elevated permissions", port))
	}
}
