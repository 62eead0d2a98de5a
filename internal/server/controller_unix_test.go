//go:build !windows

package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/mcnap-project/mcnap/internal/events"
	"github.com/mcnap-project/mcnap/internal/protocol"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestControllerFullCycle(t *testing.T) {
	stops := make(chan string, 1)
	rconAddr := fakeRconServer(t, "There are 0 of a max of 20 players online:", stops)
	gameAddr := freeAddr(t)

	presets, err := protocol.BuildPresetPackets(
		protocol.ChatComponent{Text: "Napping..."},
		protocol.ChatComponent{Text: "Starting up"},
		"",
	)
	if err != nil {
		t.Fatalf("BuildPresetPackets: %v", err)
	}

	bus := events.NewBus()
	c := NewController(
		gameAddr, rconAddr, "secret",
		50*time.Millisecond, 150*time.Millisecond,
		"sleep", []string{"30"},
		presets, bus,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	// Trigger activation with a real login exchange.
	var conn net.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err = net.Dial("tcp", gameAddr)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial game port: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	defer conn.Close()

	hs := protocol.EncodeHandshake(&protocol.Handshake{
		ProtocolVersion: 766,
		ServerAddress:   "127.0.0.1",
		ServerPort:      25565,
		NextState:       protocol.NextStateLogin,
	})
	conn.Write(hs)
	protocol.WritePacket(conn, protocol.IDLoginStart, protocol.AppendString(nil, "Steve"))

	// The fake server never exits on the RCON stop command, so honor
	// it by terminating the process once it arrives.
	select {
	case <-stops:
		c.Supervisor().Stop()
	case <-time.After(5 * time.Second):
		t.Fatal("stop command never issued")
	}

	if err := <-runErr; err != nil {
		t.Fatalf("Run: %v", err)
	}

	st := c.Status()
	if st.State != StateStopped {
		t.Errorf("final state = %s, want %s", st.State, StateStopped)
	}
	if st.PlayerName != "Steve" {
		t.Errorf("activated_by = %q, want Steve", st.PlayerName)
	}
}

func TestControllerSpawnFailure(t *testing.T) {
	stops := make(chan string, 1)
	rconAddr := fakeRconServer(t, "", stops)
	gameAddr := freeAddr(t)

	presets, err := protocol.BuildPresetPackets(
		protocol.ChatComponent{Text: "Napping..."},
		protocol.ChatComponent{Text: "Starting up"},
		"",
	)
	if err != nil {
		t.Fatalf("BuildPresetPackets: %v", err)
	}

	c := NewController(
		gameAddr, rconAddr, "secret",
		50*time.Millisecond, time.Minute,
		"/nonexistent/server-binary", nil,
		presets, events.NewBus(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	var conn net.Conn
	for {
		conn, err = net.Dial("tcp", gameAddr)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial game port: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	defer conn.Close()

	conn.Write(protocol.EncodeHandshake(&protocol.Handshake{
		ProtocolVersion: 766,
		ServerAddress:   "127.0.0.1",
		ServerPort:      25565,
		NextState:       protocol.NextStateLogin,
	}))
	protocol.WritePacket(conn, protocol.IDLoginStart, protocol.AppendString(nil, "Alex"))

	if err := <-runErr; err == nil {
		t.Error("Run returned nil for an unspawnable command")
	}
	if st := c.Status(); st.State != StateStopped {
		t.Errorf("final state = %s, want %s", st.State, StateStopped)
	}
}
