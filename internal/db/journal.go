package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mcnap-project/mcnap/internal/events"
)

// Journal is the bus consumer that persists activation cycles. It is
// entirely passive: errors surface through the bus's handler logging
// and never feed back into the lifecycle.
type Journal struct {
	db *Database

	mu        sync.Mutex
	sessionID int64
	pending   *events.ActivationPayload
}

// NewJournal attaches a journal to the bus.
func NewJournal(database *Database, bus *events.Bus) *Journal {
	j := &Journal{db: database}

	bus.Subscribe(events.EventActivation, "journal.activation", j.onActivation)
	bus.Subscribe(events.EventServerStarting, "journal.starting", j.onStarting)
	bus.Subscribe(events.EventOccupancy, "journal.occupancy", j.onOccupancy)
	bus.Subscribe(events.EventServerStopped, "journal.stopped", j.onStopped)

	return j
}

func (j *Journal) onActivation(ctx context.Context, e events.Event) error {
	payload, ok := e.Payload.(events.ActivationPayload)
	if !ok {
		return nil
	}
	j.mu.Lock()
	j.pending = &payload
	j.mu.Unlock()
	return nil
}

// onStarting opens the session row once the process actually spawned,
// so a failed spawn never leaves a phantom session behind.
func (j *Journal) onStarting(ctx context.Context, e events.Event) error {
	j.mu.Lock()
	pending := j.pending
	j.pending = nil
	j.mu.Unlock()

	if pending == nil {
		return nil
	}

	id, err := j.db.RecordStart(pending.PlayerName, pending.RemoteAddr, e.Timestamp)
	if err != nil {
		return fmt.Errorf("recording session start: %w", err)
	}

	j.mu.Lock()
	j.sessionID = id
	j.mu.Unlock()
	return nil
}

func (j *Journal) onOccupancy(ctx context.Context, e events.Event) error {
	payload, ok := e.Payload.(events.OccupancyPayload)
	if !ok || payload.PlayerCount == 0 {
		return nil
	}

	j.mu.Lock()
	id := j.sessionID
	j.mu.Unlock()
	if id == 0 {
		return nil
	}

	return j.db.RecordPeak(id, payload.PlayerCount)
}

func (j *Journal) onStopped(ctx context.Context, e events.Event) error {
	payload, ok := e.Payload.(events.StoppedPayload)
	if !ok {
		return nil
	}

	j.mu.Lock()
	id := j.sessionID
	j.sessionID = 0
	j.mu.Unlock()
	if id == 0 {
		return nil
	}

	stoppedAt := e.Timestamp
	if stoppedAt.IsZero() {
		stoppedAt = time.Now()
	}

	return j.db.RecordStop(id, stoppedAt, string(payload.Reason), payload.ExitCode)
}
