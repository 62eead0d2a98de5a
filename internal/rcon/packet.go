// Package rcon implements a client for the Source RCON protocol as
// deployed by the vanilla Minecraft server: authenticate once, then
// issue text commands and read the correlated responses. No server-side
// plugin is required.
package rcon

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Packet types. Requests use auth/command; the server answers with
// authResponse (type 2, shared with command) or response (type 0).
const (
	typeResponse     int32 = 0
	typeCommand      int32 = 2
	typeAuthResponse int32 = 2
	typeAuth         int32 = 3
)

// authFailedID is echoed as the request id when authentication is
// rejected. This is the protocol's only auth-failure signal.
const authFailedID int32 = -1

// maxPayloadSize bounds a single response frame body. The vanilla
// server fragments longer responses into multiple frames.
const maxPayloadSize = 4096

// packet is one RCON frame: little-endian int32 length prefix covering
// id+type+body+2 trailing NULs, then those fields.
type packet struct {
	ID   int32
	Type int32
	Body string
}

// writePacket frames and writes a single request.
func writePacket(w io.Writer, p packet) error {
	// id(4) + type(4) + body + two NULs
	size := int32(4 + 4 + len(p.Body) + 2)
	buf := make([]byte, 0, size+4)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(size))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(p.ID))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(p.Type))
	buf = append(buf, p.Body...)
	buf = append(buf, 0, 0)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing rcon frame: %w", err)
	}
	return nil
}

// readPacket reads a single response frame.
func readPacket(r io.Reader) (packet, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return packet{}, fmt.Errorf("reading rcon length: %w", err)
	}
	size := int32(binary.LittleEndian.Uint32(header[:]))
	if size < 10 || size > maxPayloadSize+10 {
		return packet{}, fmt.Errorf("rcon frame size %d out of range", size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return packet{}, fmt.Errorf("reading rcon body (%d bytes): %w", size, err)
	}

	p := packet{
		ID:   int32(binary.LittleEndian.Uint32(body[0:4])),
		Type: int32(binary.LittleEndian.Uint32(body[4:8])),
	}
	// Strip the two trailing NULs.
	p.Body = string(body[8 : size-2])
	return p, nil
}
