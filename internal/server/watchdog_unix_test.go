//go:build !windows

package server

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/mcnap-project/mcnap/internal/events"
	"github.com/mcnap-project/mcnap/internal/rcon"
)

// rconFrame mirrors the wire frames the watchdog's client speaks, so
// the fake server below stays independent of the client internals.
type rconFrame struct {
	id   int32
	typ  int32
	body string
}

func readFrame(r io.Reader) (rconFrame, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return rconFrame{}, err
	}
	size := binary.LittleEndian.Uint32(header[:])
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return rconFrame{}, err
	}
	return rconFrame{
		id:   int32(binary.LittleEndian.Uint32(body[0:4])),
		typ:  int32(binary.LittleEndian.Uint32(body[4:8])),
		body: string(body[8 : size-2]),
	}, nil
}

func writeFrame(w io.Writer, f rconFrame) {
	size := uint32(4 + 4 + len(f.body) + 2)
	buf := make([]byte, 0, size+4)
	buf = binary.LittleEndian.AppendUint32(buf, size)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(f.id))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(f.typ))
	buf = append(buf, f.body...)
	buf = append(buf, 0, 0)
	w.Write(buf)
}

// fakeRconServer answers auth and responds to every command with the
// given list reply. stops receives each "stop" command body.
func fakeRconServer(t *testing.T, listReply string, stops chan<- string) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				for {
					req, err := readFrame(conn)
					if err != nil {
						return
					}
					switch {
					case req.typ == 3:
						writeFrame(conn, rconFrame{id: req.id, typ: 2})
					case req.body == "stop":
						select {
						case stops <- req.body:
						default:
						}
						writeFrame(conn, rconFrame{id: req.id, typ: 0, body: "Stopping the server"})
					default:
						writeFrame(conn, rconFrame{id: req.id, typ: 0, body: listReply})
					}
				}
			}(conn)
		}
	}()

	return ln.Addr().String()
}

func startSleeper(t *testing.T, seconds string) *Supervisor {
	t.Helper()
	sup := NewSupervisor("sleep", []string{seconds})
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { sup.Stop() })
	return sup
}

func TestWatchdogIdleTimeout(t *testing.T) {
	stops := make(chan string, 1)
	addr := fakeRconServer(t, "There are 0 of a max of 20 players online:", stops)
	sup := startSleeper(t, "30")

	w := NewWatchdog(addr, "secret", 50*time.Millisecond, 150*time.Millisecond, sup, events.NewBus())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reason, err := w.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reason != events.StopReasonIdle {
		t.Errorf("reason = %q, want %q", reason, events.StopReasonIdle)
	}

	select {
	case <-stops:
	default:
		t.Error("stop command never reached the server")
	}
}

func TestWatchdogProcessExit(t *testing.T) {
	stops := make(chan string, 1)
	addr := fakeRconServer(t, "There are 2 of a max of 20 players online: Steve, Alex", stops)
	sup := startSleeper(t, "0.3")

	// Idle timeout far beyond the test so only the liveness check can
	// end the run.
	w := NewWatchdog(addr, "secret", 50*time.Millisecond, time.Hour, sup, events.NewBus())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reason, err := w.Run(ctx)
	if err == nil {
		t.Fatal("Run returned nil error for a dead process")
	}
	if reason != events.StopReasonCrash {
		t.Errorf("reason = %q, want %q", reason, events.StopReasonCrash)
	}
	select {
	case <-stops:
		t.Error("stop command sent for a crashed process")
	default:
	}
}

func TestWatchdogAuthRejected(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				for {
					req, err := readFrame(conn)
					if err != nil {
						return
					}
					if req.typ == 3 {
						writeFrame(conn, rconFrame{id: -1, typ: 2})
					}
				}
			}(conn)
		}
	}()

	sup := startSleeper(t, "30")
	w := NewWatchdog(ln.Addr().String(), "wrong", 50*time.Millisecond, time.Minute, sup, events.NewBus())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = w.Run(ctx)
	if !errors.Is(err, rcon.ErrAuthFailed) {
		t.Errorf("Run err = %v, want ErrAuthFailed", err)
	}
}
