package rcon

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrAuthFailed means the server rejected the password (response
	// frame carrying request id -1). Callers must stop retrying: the
	// password will not get better.
	ErrAuthFailed = errors.New("rcon authentication rejected")

	// ErrUnreachable means the connection was refused, reset, or
	// closed before any response. Transient while the server boots.
	ErrUnreachable = errors.New("rcon server unreachable")

	// ErrMismatchedID means a response carried a request id we never
	// sent. The session is unusable after this.
	ErrMismatchedID = errors.New("rcon response id mismatch")
)

// Client is a single authenticated RCON session. It is not safe for
// concurrent use: every MCNap session has exactly one owner (the
// watchdog loop, or the short-lived manual stop flow), so request-id
// correlation needs no locking.
type Client struct {
	conn       net.Conn
	addr       string
	timeout    time.Duration
	nextID     int32
	logger     zerolog.Logger
	authedOnce bool
}

// Dial connects to the RCON port. The timeout bounds the TCP dial and
// every subsequent request/response round-trip, so a half-open socket
// can never hang a poll tick.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	return &Client{
		conn:    conn,
		addr:    addr,
		timeout: timeout,
		nextID:  1,
		logger:  log.With().Str("component", "rcon").Str("addr", addr).Logger(),
	}, nil
}

// Authenticate performs the auth exchange. Success is the server
// echoing our request id; failure is id -1, reported as ErrAuthFailed
// and never as a connection error.
func (c *Client) Authenticate(password string) error {
	id := c.claimID()
	if err := c.send(packet{ID: id, Type: typeAuth, Body: password}); err != nil {
		return err
	}

	resp, err := c.recv()
	if err != nil {
		return err
	}
	// Some servers send an empty type-0 frame before the auth
	// response; skip it.
	if resp.Type == typeResponse && resp.ID == id {
		resp, err = c.recv()
		if err != nil {
			return err
		}
	}

	if resp.ID == authFailedID {
		return ErrAuthFailed
	}
	if resp.ID != id {
		return fmt.Errorf("%w: sent %d, got %d", ErrMismatchedID, id, resp.ID)
	}

	c.authedOnce = true
	c.logger.Debug().Msg("rcon authenticated")
	return nil
}

// Command sends a command and returns the full response text.
// The server may fragment long responses across frames sharing our
// request id; fragments are concatenated until a frame for a probe id
// arrives, which marks the end of the response.
func (c *Client) Command(cmd string) (string, error) {
	id := c.claimID()
	if err := c.send(packet{ID: id, Type: typeCommand, Body: cmd}); err != nil {
		return "", err
	}

	resp, err := c.recv()
	if err != nil {
		return "", err
	}
	if resp.ID != id {
		return "", fmt.Errorf("%w: sent %d, got %d", ErrMismatchedID, id, resp.ID)
	}
	body := resp.Body

	// A response short of the fragment ceiling is complete. Otherwise
	// send an empty probe command: the server answers requests in
	// order, so the probe's echo delimits the remaining fragments.
	if len(resp.Body) >= maxPayloadSize {
		probeID := c.claimID()
		if err := c.send(packet{ID: probeID, Type: typeCommand, Body: ""}); err != nil {
			return "", err
		}
		for {
			frag, err := c.recv()
			if err != nil {
				return "", err
			}
			if frag.ID == probeID {
				break
			}
			if frag.ID != id {
				return "", fmt.Errorf("%w: sent %d, got %d", ErrMismatchedID, id, frag.ID)
			}
			body += frag.Body
		}
	}

	return body, nil
}

// Close tears down the session.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) claimID() int32 {
	id := c.nextID
	c.nextID++
	if c.nextID < 0 { // wrapped past MaxInt32
		c.nextID = 1
	}
	return id
}

func (c *Client) send(p packet) error {
	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if err := writePacket(c.conn, p); err != nil {
		return c.classify(err)
	}
	return nil
}

func (c *Client) recv() (packet, error) {
	c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	p, err := readPacket(c.conn)
	if err != nil {
		return packet{}, c.classify(err)
	}
	return p, nil
}

// classify folds transport-level failures into the error taxonomy.
// Before the first successful auth every failure is "unreachable";
// afterwards the raw error is kept so the watchdog can distinguish a
// dead server from a slow one via its own failure budget.
func (c *Client) classify(err error) error {
	if !c.authedOnce {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return err
}
