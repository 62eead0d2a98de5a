package server

import (
	"testing"
	"time"

	"github.com/mcnap-project/mcnap/internal/events"
)

func TestParsePlayerCount(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     int
	}{
		{"empty server", "There are 0 of a max of 20 players online:", 0},
		{"three players", "There are 3 of a max of 20 players online: Steve, Alex, Herobrine", 3},
		{"large count", "There are 117 of a max of 200 players online: ...", 117},
		{"unrecognized response", "Unknown command", 0},
		{"empty response", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parsePlayerCount(tt.response); got != tt.want {
				t.Errorf("parsePlayerCount(%q) = %d, want %d", tt.response, got, tt.want)
			}
		})
	}
}

func TestObserveIdleWindow(t *testing.T) {
	w := NewWatchdog("127.0.0.1:25575", "", time.Second, time.Minute, nil, events.NewBus())

	w.mu.Lock()
	w.lastOnline = time.Now().Add(-10 * time.Second)
	w.mu.Unlock()

	// Empty polls report time since the window opened.
	if idle := w.observe(0); idle < 9*time.Second {
		t.Errorf("idleFor = %v, want >= 9s", idle)
	}

	// Occupancy resets the window and tracks the peak.
	if idle := w.observe(4); idle != 0 {
		t.Errorf("idleFor with players = %v, want 0", idle)
	}
	if idle := w.observe(0); idle > time.Second {
		t.Errorf("idleFor after reset = %v, want ~0", idle)
	}

	players, peak, _ := w.Snapshot()
	if players != 0 || peak != 4 {
		t.Errorf("snapshot = (%d players, %d peak), want (0, 4)", players, peak)
	}
}
