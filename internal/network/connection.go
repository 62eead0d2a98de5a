// Package network implements the handshake listener that fronts the
// game port while the real server is asleep.
package network

import (
	"net"
	"time"

	"github.com/mcnap-project/mcnap/internal/protocol"
)

// Conn wraps an accepted client connection with per-operation
// deadlines. A handshake exchange is a handful of tiny packets; any
// client that stalls longer than the deadline is dropped.
type Conn struct {
	conn    net.Conn
	timeout time.Duration
}

// NewConn wraps an accepted net.Conn.
func NewConn(conn net.Conn, timeout time.Duration) *Conn {
	return &Conn{conn: conn, timeout: timeout}
}

// ReadPacket reads one framed packet, bounded by the deadline.
func (c *Conn) ReadPacket() (*protocol.Packet, error) {
	c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	return protocol.ReadPacket(c.conn)
}

// Write sends raw pre-framed bytes, bounded by the deadline.
func (c *Conn) Write(data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	_, err := c.conn.Write(data)
	return err
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}
