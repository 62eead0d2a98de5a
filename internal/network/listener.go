package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcnap-project/mcnap/internal/events"
	"github.com/mcnap-project/mcnap/internal/protocol"
)

const (
	// ConnTimeout bounds every read/write during a handshake exchange.
	ConnTimeout = 10 * time.Second

	// disconnectDrain gives the client a moment to consume the login
	// disconnect packet before the socket closes; closing immediately
	// makes some client versions show a generic connection error
	// instead of the configured message.
	disconnectDrain = 50 * time.Millisecond
)

// Activation is the signal that a genuine login attempt was seen.
type Activation struct {
	PlayerName string
	RemoteAddr string
}

// Listener fronts the game port: it answers server-list pings locally
// with the configured MOTD and icon, and reports the first genuine
// login attempt. It handles connections sequentially — only the first
// real login matters, and ping traffic is tiny.
type Listener struct {
	addr    string
	presets *protocol.PresetPackets
	bus     *events.Bus
	logger  zerolog.Logger

	ln        net.Listener
	activated chan Activation
}

// NewListener creates a handshake listener for addr ("host:port").
func NewListener(addr string, presets *protocol.PresetPackets, bus *events.Bus) *Listener {
	return &Listener{
		addr:      addr,
		presets:   presets,
		bus:       bus,
		logger:    log.With().Str("component", "listener").Str("addr", addr).Logger(),
		activated: make(chan Activation, 1),
	}
}

// Activation returns the channel that delivers the (single) activation
// signal. The channel is closed after delivery.
func (l *Listener) Activation() <-chan Activation {
	return l.activated
}

// Start binds the game port and accepts connections until a genuine
// login is seen or the context is cancelled. The listener socket is
// closed before the activation signal is delivered, so the port is
// free for the real server and no second client can trigger a second
// spawn. A bind failure is returned immediately.
func (l *Listener) Start(ctx context.Context) error {
	lc := ReuseAddrListenConfig()
	ln, err := lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", l.addr, err)
	}
	l.ln = ln

	l.logger.Info().Msg("listening for login")

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				l.logger.Info().Msg("listener stopping")
				close(l.activated)
				return ctx.Err()
			default:
			}
			l.logger.Error().Err(err).Msg("accept failed")
			continue
		}

		act, ok := l.handleConn(conn)
		if !ok {
			continue
		}

		// Tear down before signalling: activation and listener
		// shutdown must be atomic from the caller's perspective.
		ln.Close()

		l.logger.Info().
			Str("player", act.PlayerName).
			Str("remote", act.RemoteAddr).
			Msg("login detected, activating server")

		l.bus.Emit(ctx, events.Event{
			Type:   events.EventActivation,
			Source: "listener",
			Payload: events.ActivationPayload{
				PlayerName: act.PlayerName,
				RemoteAddr: act.RemoteAddr,
			},
		})

		l.activated <- act
		close(l.activated)
		return nil
	}
}

// handleConn processes one accepted connection. It returns an
// Activation and true only for a confirmed login attempt; status pings
// are answered here and protocol errors are logged and dropped without
// affecting the accept loop.
func (l *Listener) handleConn(rawConn net.Conn) (Activation, bool) {
	conn := NewConn(rawConn, ConnTimeout)
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	logger := l.logger.With().Str("remote", remote).Logger()

	pkt, err := conn.ReadPacket()
	if err != nil {
		// Port scanners and broken clients hit this constantly;
		// keep it quiet unless debugging.
		logger.Debug().Err(err).Msg("dropping connection before handshake")
		return Activation{}, false
	}

	hs, err := protocol.ParseHandshake(pkt)
	if err != nil {
		logger.Warn().Err(err).Msg("malformed handshake, dropping connection")
		return Activation{}, false
	}

	switch hs.NextState {
	case protocol.NextStateStatus:
		l.serveStatus(conn, logger)
		return Activation{}, false

	case protocol.NextStateLogin:
		name, err := l.confirmLogin(conn)
		if err != nil {
			logger.Warn().Err(err).Msg("invalid login start, dropping connection")
			return Activation{}, false
		}
		return Activation{PlayerName: name, RemoteAddr: remote}, true
	}

	// Unreachable: ParseHandshake rejects other states.
	return Activation{}, false
}

// serveStatus answers a server-list ping: consume the status request,
// send the pre-serialized status response, and echo a ping packet if
// the client sends one.
func (l *Listener) serveStatus(conn *Conn, logger zerolog.Logger) {
	req, err := conn.ReadPacket()
	if err != nil || req.ID != protocol.IDStatusRequest {
		logger.Debug().Err(err).Msg("no status request after handshake")
		return
	}

	if err := conn.Write(l.presets.Status); err != nil {
		logger.Debug().Err(err).Msg("failed to send status response")
		return
	}

	logger.Debug().Msg("status response sent")

	// Optional ping/pong: most clients send it, some close right away.
	ping, err := conn.ReadPacket()
	if err != nil || ping.ID != protocol.IDPing {
		return
	}
	if err := conn.Write(protocol.EncodePong(ping.Payload)); err != nil {
		logger.Debug().Err(err).Msg("failed to send pong")
	}
}

// confirmLogin validates the Login Start packet and notifies the
// player that the server is starting.
func (l *Listener) confirmLogin(conn *Conn) (string, error) {
	pkt, err := conn.ReadPacket()
	if err != nil {
		return "", fmt.Errorf("reading login start: %w", err)
	}

	name, err := protocol.ParseLoginStart(pkt)
	if err != nil {
		return "", err
	}

	if err := conn.Write(l.presets.LoginDisconnect); err != nil {
		// Activation still proceeds: the join attempt was genuine
		// even if the courtesy message did not get through.
		l.logger.Debug().Err(err).Msg("failed to send starting message")
	} else {
		time.Sleep(disconnectDrain)
	}

	return name, nil
}

// Close shuts the listener socket down early (used on fatal errors in
// other tasks).
func (l *Listener) Close() error {
	if l.ln != nil {
		err := l.ln.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
	}
	return nil
}
