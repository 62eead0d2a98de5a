package server

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcnap-project/mcnap/internal/events"
	"github.com/mcnap-project/mcnap/internal/rcon"
)

const (
	// DialTimeout bounds each RCON connection attempt and each
	// request/response round-trip, so a half-open socket falls
	// through to the next poll tick instead of hanging the watchdog.
	DialTimeout = 5 * time.Second

	// MaxPollFailures is the consecutive-failure budget once Active.
	// RCON going dark this many polls in a row almost certainly means
	// the server hung or crashed without the process exiting yet.
	MaxPollFailures = 5

	// listCommand asks the vanilla server for the online players.
	listCommand = "list"

	// stopCommand shuts the vanilla server down gracefully.
	stopCommand = "stop"
)

// playerCountRe extracts the occupancy from the vanilla "list" reply:
// "There are 3 of a max of 20 players online: …".
var playerCountRe = regexp.MustCompile(`There are (\d+) of a max`)

// ErrPollFailures means RCON stayed unreachable past the failure
// budget while the watchdog was Active.
var ErrPollFailures = errors.New("rcon unreachable past failure budget")

// Watchdog polls the server's occupancy over RCON and decides when it
// has been idle long enough to stop. It exclusively owns its RCON
// session; nothing else touches it while the watchdog runs.
type Watchdog struct {
	addr     string
	password string

	pollInterval time.Duration
	idleTimeout  time.Duration

	sup    *Supervisor
	bus    *events.Bus
	logger zerolog.Logger

	mu          sync.Mutex
	playerCount int
	peakPlayers int
	lastOnline  time.Time
}

// NewWatchdog creates a watchdog for the RCON endpoint addr.
func NewWatchdog(addr, password string, pollInterval, idleTimeout time.Duration, sup *Supervisor, bus *events.Bus) *Watchdog {
	return &Watchdog{
		addr:         addr,
		password:     password,
		pollInterval: pollInterval,
		idleTimeout:  idleTimeout,
		sup:          sup,
		bus:          bus,
		logger:       log.With().Str("component", "watchdog").Str("rcon", addr).Logger(),
	}
}

// Run executes the watchdog loop: wait for RCON to come up, then poll
// occupancy until the idle timeout fires or the server dies.
//
// The returned reason is StopReasonIdle when the stop command was
// issued after the idle window elapsed, and StopReasonCrash (with a
// non-nil error) when the process exited or RCON stayed dead while
// Active. Auth rejection is returned as rcon.ErrAuthFailed — retrying
// a wrong password forever would be polling for nothing.
func (w *Watchdog) Run(ctx context.Context) (events.StopReason, error) {
	client, err := w.waitForRcon(ctx)
	if err != nil {
		return events.StopReasonCrash, err
	}
	defer client.Close()

	w.logger.Info().Msg("rcon reachable, server is active")
	w.bus.Emit(ctx, events.Event{Type: events.EventServerActive, Source: "watchdog"})

	w.mu.Lock()
	w.lastOnline = time.Now()
	w.mu.Unlock()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return events.StopReasonCrash, ctx.Err()
		case <-ticker.C:
		}

		// Liveness first: a dead process makes the RCON state moot.
		if !w.sup.IsRunning() {
			w.logger.Warn().Msg("server process exited unexpectedly")
			return events.StopReasonCrash, fmt.Errorf("server process exited unexpectedly (code %d)", w.sup.ExitCode())
		}

		count, err := w.poll(&client)
		if err != nil {
			failures++
			w.logger.Warn().
				Err(err).
				Int("consecutive", failures).
				Msg("rcon poll failed")
			if failures >= MaxPollFailures {
				return events.StopReasonCrash, fmt.Errorf("%w: %d consecutive failures", ErrPollFailures, failures)
			}
			continue
		}
		failures = 0

		idleFor := w.observe(count)
		w.bus.Emit(ctx, events.Event{
			Type:   events.EventOccupancy,
			Source: "watchdog",
			Payload: events.OccupancyPayload{
				PlayerCount: count,
				IdleFor:     idleFor,
			},
		})

		if count == 0 && idleFor >= w.idleTimeout {
			w.logger.Info().
				Dur("idle_for", idleFor).
				Dur("idle_timeout", w.idleTimeout).
				Msg("idle timeout reached, stopping server")

			w.bus.Emit(ctx, events.Event{Type: events.EventServerStopping, Source: "watchdog"})

			if _, err := client.Command(stopCommand); err != nil {
				return events.StopReasonIdle, fmt.Errorf("sending stop command: %w", err)
			}
			return events.StopReasonIdle, nil
		}
	}
}

// waitForRcon dials and authenticates on the poll interval until the
// server's RCON port comes up. Connection refused is the expected
// state while the server boots and is retried as long as the process
// is alive; auth rejection is fatal immediately.
func (w *Watchdog) waitForRcon(ctx context.Context) (*rcon.Client, error) {
	w.logger.Info().
		Dur("poll_interval", w.pollInterval).
		Msg("waiting for rcon to come up")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		client, err := w.connect()
		if err == nil {
			return client, nil
		}
		if errors.Is(err, rcon.ErrAuthFailed) {
			return nil, err
		}

		if !w.sup.IsRunning() {
			return nil, fmt.Errorf("server process exited during startup (code %d)", w.sup.ExitCode())
		}

		w.logger.Debug().Err(err).Msg("rcon not ready, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// connect performs one full dial + authenticate + probe round-trip.
// Only after a command answers is the server considered Active.
func (w *Watchdog) connect() (*rcon.Client, error) {
	client, err := rcon.Dial(w.addr, DialTimeout)
	if err != nil {
		return nil, err
	}
	if err := client.Authenticate(w.password); err != nil {
		client.Close()
		return nil, err
	}
	if _, err := client.Command(listCommand); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// poll issues one list command, re-dialing if the session broke on a
// previous tick.
func (w *Watchdog) poll(client **rcon.Client) (int, error) {
	if *client == nil {
		c, err := w.connect()
		if err != nil {
			return 0, err
		}
		*client = c
	}

	resp, err := (*client).Command(listCommand)
	if err != nil {
		(*client).Close()
		*client = nil
		return 0, err
	}

	w.logger.Debug().Str("response", resp).Msg("list response")
	return parsePlayerCount(resp), nil
}

// observe updates the idle window and returns how long the server has
// been empty. Any occupancy resets the window to zero.
func (w *Watchdog) observe(count int) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.playerCount = count
	if count > 0 {
		w.lastOnline = time.Now()
		if count > w.peakPlayers {
			w.peakPlayers = count
		}
		return 0
	}
	return time.Since(w.lastOnline)
}

// Snapshot returns the current occupancy picture for the status API.
func (w *Watchdog) Snapshot() (playerCount, peakPlayers int, idleFor time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	idleFor = 0
	if w.playerCount == 0 && !w.lastOnline.IsZero() {
		idleFor = time.Since(w.lastOnline)
	}
	return w.playerCount, w.peakPlayers, idleFor
}

// parsePlayerCount extracts the player count from a list response.
// An unrecognized response counts as empty, matching a server that is
// up but has nobody on it.
func parsePlayerCount(response string) int {
	m := playerCountRe.FindStringSubmatch(response)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
