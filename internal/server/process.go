// Package server implements the supervised game server process, the
// RCON idle watchdog, and the activation controller that owns the
// lifecycle state machine.
package server

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/process"
)

// StopGracePeriod is how long Stop waits after a termination signal
// before force-killing the child.
const StopGracePeriod = 10 * time.Second

// Supervisor owns exactly one game server OS process: it spawns the
// configured command, tracks liveness by waiting on the actual child
// handle, and can terminate it as a last resort when the RCON stop
// path fails.
type Supervisor struct {
	mu   sync.Mutex
	cmd  *exec.Cmd
	proc *process.Process
	pid  int

	running   bool
	startedAt time.Time
	exitCode  int
	exitErr   error
	done      chan struct{}

	executable string
	args       []string
	logger     zerolog.Logger
}

// NewSupervisor creates a supervisor for the exact command line the
// operator configured. Nothing is quoted or rewritten.
func NewSupervisor(executable string, args []string) *Supervisor {
	return &Supervisor{
		executable: executable,
		args:       args,
		exitCode:   -1,
		done:       make(chan struct{}),
		logger:     log.With().Str("component", "supervisor").Logger(),
	}
}

// Start launches the server process. Platform policy: Windows spawns
// with a new visible console so the server log stays inspectable;
// other systems attach the child to the activator's own stdio.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("process already running (pid: %d)", s.pid)
	}

	s.logger.Info().
		Str("executable", s.executable).
		Strs("args", s.args).
		Msg("starting server process")

	// Not CommandContext: context cancellation must never kill the
	// game server behind the operator's back. Termination is always
	// explicit via Stop.
	cmd := exec.Command(s.executable, s.args...)
	setPlatformProcessAttrs(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawning %s: %w", s.executable, err)
	}

	s.cmd = cmd
	s.pid = cmd.Process.Pid
	s.running = true
	s.startedAt = time.Now()
	s.exitCode = -1
	s.exitErr = nil
	s.done = make(chan struct{})

	if p, err := process.NewProcess(int32(s.pid)); err == nil {
		s.proc = p
	}

	s.logger.Info().Int("pid", s.pid).Msg("server process started")

	go s.monitor()

	return nil
}

// monitor waits on the child handle and records the exit. Waiting on
// the handle (not on port probes or similar heuristics) is what makes
// exit detection reliable even when the command is a launcher script.
func (s *Supervisor) monitor() {
	err := s.cmd.Wait()

	s.mu.Lock()
	s.running = false
	s.exitErr = err
	if s.cmd.ProcessState != nil {
		s.exitCode = s.cmd.ProcessState.ExitCode()
	}
	pid := s.pid
	exitCode := s.exitCode
	s.mu.Unlock()

	s.logger.Info().
		Int("pid", pid).
		Int("exit_code", exitCode).
		Msg("server process exited")

	close(s.done)
}

// IsRunning reports whether the child is still alive.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// WaitForExit blocks until the process terminates by any means, or the
// context is cancelled.
func (s *Supervisor) WaitForExit(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop is the last-resort termination path: signal the process to
// terminate, then force-kill if it is still alive after the grace
// period. The normal shutdown path is the RCON stop command.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	if !s.running || s.cmd == nil || s.cmd.Process == nil {
		s.mu.Unlock()
		return nil
	}
	pid := s.pid
	proc := s.cmd.Process
	s.mu.Unlock()

	s.logger.Warn().Int("pid", pid).Msg("forcing server process to stop")

	if err := proc.Signal(os.Interrupt); err != nil {
		s.logger.Warn().Err(err).Msg("interrupt failed, killing immediately")
		return proc.Kill()
	}

	select {
	case <-s.done:
		s.logger.Info().Msg("server process stopped after signal")
		return nil
	case <-time.After(StopGracePeriod):
		s.logger.Warn().
			Dur("grace", StopGracePeriod).
			Msg("server process ignored signal, killing")
		return proc.Kill()
	}
}

// PID returns the child process id, 0 before Start.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

// Uptime returns how long the child has been running.
func (s *Supervisor) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// ExitCode returns the child's exit code, -1 while it is running.
func (s *Supervisor) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

// Stats returns CPU and memory usage of the child, for the status API.
func (s *Supervisor) Stats() (cpuPercent float64, memoryMB float64, err error) {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()

	if proc == nil {
		return 0, 0, fmt.Errorf("process not available")
	}

	cpuPercent, err = proc.CPUPercent()
	if err != nil {
		return 0, 0, err
	}

	memInfo, err := proc.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}

	return cpuPercent, float64(memInfo.RSS) / (1024 * 1024), nil
}
