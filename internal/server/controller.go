package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcnap-project/mcnap/internal/events"
	"github.com/mcnap-project/mcnap/internal/network"
	"github.com/mcnap-project/mcnap/internal/protocol"
)

// ExitGracePeriod is how long the controller waits for the process to
// exit after the RCON stop command before falling back to the
// supervisor's termination path. Vanilla saves all chunks on stop, so
// this is deliberately generous.
const ExitGracePeriod = 90 * time.Second

// State is a phase of the activation lifecycle.
type State string

const (
	StateIdle     State = "idle"     // listening for a login, no server process
	StateStarting State = "starting" // process spawned, RCON not yet answering
	StateActive   State = "active"   // RCON answering, occupancy being polled
	StateStopping State = "stopping" // stop issued, waiting for process exit
	StateStopped  State = "stopped"  // process exit confirmed
)

func (s State) String() string {
	return string(s)
}

// Status is a point-in-time snapshot of the controller, served by the
// HTTP status endpoint and the telemetry publisher.
type Status struct {
	State       State         `json:"state"`
	PlayerName  string        `json:"activated_by,omitempty"`
	PlayerCount int           `json:"player_count"`
	PeakPlayers int           `json:"peak_players"`
	IdleFor     time.Duration `json:"idle_for"`
	PID         int           `json:"pid,omitempty"`
	Uptime      time.Duration `json:"uptime"`
}

// Controller owns one full activation cycle: listen for a login, spawn
// the server, hand the session to the watchdog, and confirm the exit.
// It is the only writer of the lifecycle state.
type Controller struct {
	gameAddr string
	rconAddr string
	rconPass string

	pollInterval time.Duration
	idleTimeout  time.Duration

	presets *protocol.PresetPackets
	bus     *events.Bus
	logger  zerolog.Logger

	mu          sync.RWMutex
	state       State
	activatedBy string
	sup         *Supervisor
	watchdog    *Watchdog
}

// NewController wires a controller for one game port and one server
// command line.
func NewController(gameAddr, rconAddr, rconPass string, pollInterval, idleTimeout time.Duration, executable string, args []string, presets *protocol.PresetPackets, bus *events.Bus) *Controller {
	c := &Controller{
		gameAddr:     gameAddr,
		rconAddr:     rconAddr,
		rconPass:     rconPass,
		pollInterval: pollInterval,
		idleTimeout:  idleTimeout,
		presets:      presets,
		bus:          bus,
		logger:       log.With().Str("component", "controller").Logger(),
		state:        StateIdle,
		sup:          NewSupervisor(executable, args),
	}
	c.watchdog = NewWatchdog(rconAddr, rconPass, pollInterval, idleTimeout, c.sup, bus)
	return c
}

// Run drives one cycle from Idle to Stopped. It returns nil for a
// graceful idle shutdown and a non-nil error when the server crashed,
// RCON auth was rejected, or the stop path had to be forced.
func (c *Controller) Run(ctx context.Context) error {
	c.setState(StateIdle)

	listener := network.NewListener(c.gameAddr, c.presets, c.bus)
	if err := listener.Start(ctx); err != nil {
		return fmt.Errorf("handshake listener: %w", err)
	}

	act, ok := <-listener.Activation()
	if !ok {
		// Context cancelled before any login arrived.
		return ctx.Err()
	}

	c.mu.Lock()
	c.activatedBy = act.PlayerName
	c.mu.Unlock()

	c.setState(StateStarting)
	if err := c.sup.Start(ctx); err != nil {
		c.setState(StateStopped)
		return fmt.Errorf("spawning server: %w", err)
	}
	c.bus.Emit(ctx, events.Event{Type: events.EventServerStarting, Source: "controller"})

	reason, runErr := c.runWatchdog(ctx)
	if errors.Is(runErr, context.Canceled) {
		// Shutdown signal, not a failure: the operator stopped mcnap.
		reason = events.StopReasonManual
		runErr = nil
	}

	c.setState(StateStopping)
	reason, forceErr := c.confirmExit(reason)
	if runErr == nil {
		runErr = forceErr
	}

	exitCode := c.sup.ExitCode()
	c.setState(StateStopped)
	c.bus.Emit(ctx, events.Event{
		Type:   events.EventServerStopped,
		Source: "controller",
		Payload: events.StoppedPayload{
			Reason:   reason,
			ExitCode: exitCode,
		},
	})

	c.logger.Info().
		Str("reason", string(reason)).
		Int("exit_code", exitCode).
		Msg("activation cycle complete")

	return runErr
}

// runWatchdog relays the Active transition into the controller state
// and runs the watchdog to completion.
func (c *Controller) runWatchdog(ctx context.Context) (events.StopReason, error) {
	c.bus.Subscribe(events.EventServerActive, "controller.active", func(ctx context.Context, e events.Event) error {
		c.setState(StateActive)
		return nil
	})

	reason, err := c.watchdog.Run(ctx)
	if err != nil {
		c.logger.Error().Err(err).Str("reason", string(reason)).Msg("watchdog ended with error")
	}
	return reason, err
}

// confirmExit waits for the process to actually terminate. After an
// idle stop the RCON command is already in flight, so the full grace
// period is allowed for the save on shutdown before falling back to
// the supervisor's termination path. A manual stop goes straight to
// the supervisor (signal, then kill past its own grace) and stays a
// normal outcome; everything else that still needs force is one.
func (c *Controller) confirmExit(reason events.StopReason) (events.StopReason, error) {
	if !c.sup.IsRunning() {
		return reason, nil
	}

	if reason == events.StopReasonIdle {
		waitCtx, cancel := context.WithTimeout(context.Background(), ExitGracePeriod)
		err := c.sup.WaitForExit(waitCtx)
		cancel()
		if err == nil {
			return reason, nil
		}
		c.logger.Warn().Msg("server did not exit after stop command, forcing termination")
	}

	if err := c.sup.Stop(); err != nil {
		return events.StopReasonForced, fmt.Errorf("forcing server stop: %w", err)
	}
	if err := c.sup.WaitForExit(context.Background()); err != nil {
		return events.StopReasonForced, err
	}

	if reason == events.StopReasonManual {
		return reason, nil
	}
	return events.StopReasonForced, fmt.Errorf("server required forced termination")
}

// Status returns a snapshot of the current cycle.
func (c *Controller) Status() Status {
	c.mu.RLock()
	state := c.state
	activatedBy := c.activatedBy
	c.mu.RUnlock()

	players, peak, idleFor := c.watchdog.Snapshot()

	st := Status{
		State:       state,
		PlayerName:  activatedBy,
		PlayerCount: players,
		PeakPlayers: peak,
		IdleFor:     idleFor,
	}
	if c.sup.IsRunning() {
		st.PID = c.sup.PID()
		st.Uptime = c.sup.Uptime()
	}
	return st
}

// Supervisor exposes the process handle for the status API's resource
// stats.
func (c *Controller) Supervisor() *Supervisor {
	return c.sup
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()

	if prev != s {
		c.logger.Info().
			Str("from", string(prev)).
			Str("to", string(s)).
			Msg("state transition")
	}
}
