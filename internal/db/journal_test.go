package db

import (
	"context"
	"testing"
	"time"

	"github.com/mcnap-project/mcnap/internal/events"
)

func TestJournalRecordsCycle(t *testing.T) {
	database := openTestDB(t)
	bus := events.NewBus()
	j := NewJournal(database, bus)

	ctx := context.Background()
	started := time.Date(2026, 8, 24, 18, 0, 0, 0, time.UTC)

	// Handlers invoked directly: the bus delivers them one goroutine
	// each, so ordering is only meaningful per event source.
	j.onActivation(ctx, events.Event{
		Type:      events.EventActivation,
		Timestamp: started,
		Payload:   events.ActivationPayload{PlayerName: "Steve", RemoteAddr: "10.0.0.5:51234"},
	})
	j.onStarting(ctx, events.Event{Type: events.EventServerStarting, Timestamp: started})

	j.onOccupancy(ctx, events.Event{
		Type:    events.EventOccupancy,
		Payload: events.OccupancyPayload{PlayerCount: 2},
	})

	j.onStopped(ctx, events.Event{
		Type:      events.EventServerStopped,
		Timestamp: started.Add(30 * time.Minute),
		Payload:   events.StoppedPayload{Reason: events.StopReasonIdle, ExitCode: 0},
	})

	sessions, err := database.RecentSessions(10)
	if err != nil {
		t.Fatalf("RecentSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	s := sessions[0]
	if s.ActivatedBy != "Steve" {
		t.Errorf("activated_by = %q", s.ActivatedBy)
	}
	if s.PeakPlayers != 2 {
		t.Errorf("peak = %d, want 2", s.PeakPlayers)
	}
	if s.StopReason != string(events.StopReasonIdle) {
		t.Errorf("reason = %q", s.StopReason)
	}
}

func TestJournalIgnoresStopWithoutStart(t *testing.T) {
	database := openTestDB(t)
	bus := events.NewBus()
	j := NewJournal(database, bus)

	err := j.onStopped(context.Background(), events.Event{
		Type:    events.EventServerStopped,
		Payload: events.StoppedPayload{Reason: events.StopReasonCrash, ExitCode: 1},
	})
	if err != nil {
		t.Fatalf("onStopped: %v", err)
	}

	sessions, err := database.RecentSessions(10)
	if err != nil {
		t.Fatalf("RecentSessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("phantom session recorded: %+v", sessions)
	}
}
