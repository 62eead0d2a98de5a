// Package events implements the publish-subscribe backbone carrying
// lifecycle and occupancy events between the activation controller and
// the passive consumers (session journal, telemetry, status API).
package events

import "time"

// EventType identifies a category of event.
type EventType string

const (
	// EventActivation fires when the handshake listener confirms a
	// genuine login attempt. At most once per run.
	EventActivation EventType = "activation"

	// EventServerStarting fires when the server process has been
	// spawned and the watchdog begins waiting for RCON.
	EventServerStarting EventType = "server_starting"

	// EventServerActive fires on the first successful RCON
	// authenticate + command round-trip.
	EventServerActive EventType = "server_active"

	// EventOccupancy fires on every watchdog poll with the current
	// player count.
	EventOccupancy EventType = "occupancy"

	// EventServerStopping fires when the idle timeout expires and the
	// stop command has been issued.
	EventServerStopping EventType = "server_stopping"

	// EventServerStopped fires when the server process exit is
	// confirmed, whatever the cause.
	EventServerStopped EventType = "server_stopped"

	// EventShutdown signals the whole run is ending.
	EventShutdown EventType = "shutdown"
)

// Event is a single message on the bus.
type Event struct {
	Type      EventType
	Source    string
	Timestamp time.Time
	Payload   any
}

// ActivationPayload carries who triggered the server start.
type ActivationPayload struct {
	PlayerName string `json:"player_name"`
	RemoteAddr string `json:"remote_addr"`
}

// OccupancyPayload carries one poll sample.
type OccupancyPayload struct {
	PlayerCount int           `json:"player_count"`
	IdleFor     time.Duration `json:"idle_for"`
}

// StoppedPayload carries why the run ended.
type StoppedPayload struct {
	Reason   StopReason `json:"reason"`
	ExitCode int        `json:"exit_code"`
}

// StopReason classifies a server stop.
type StopReason string

const (
	StopReasonIdle   StopReason = "idle"    // idle timeout, stop sent over RCON
	StopReasonCrash  StopReason = "crash"   // process exited while Active
	StopReasonManual StopReason = "manual"  // operator stop command
	StopReasonForced StopReason = "forced"  // RCON stop failed, supervisor killed it
)
