package protocol

import (
	"encoding/binary"
	"fmt"
)

// NextState values carried by the handshake packet.
const (
	NextStateStatus int32 = 1
	NextStateLogin  int32 = 2
)

// Handshake is the first packet every Java Edition client sends. The
// next_state field is the only part MCNap acts on: it decides whether
// the connection is a server-list ping or a genuine join attempt.
type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	NextState       int32
}

// ParseHandshake decodes a handshake packet payload.
// Layout: protocol version varint, server address string, port uint16 BE,
// next_state varint. Trailing bytes beyond next_state are a framing
// violation (the declared length already matched, so any leftover means
// the fields overran or underran).
func ParseHandshake(p *Packet) (*Handshake, error) {
	if p.ID != IDHandshake {
		return nil, fmt.Errorf("packet id 0x%02X is not a handshake: %w", p.ID, ErrMalformed)
	}

	buf := p.Payload
	version, n, err := DecodeVarint(buf)
	if err != nil {
		return nil, fmt.Errorf("protocol version: %w", ErrMalformed)
	}
	buf = buf[n:]

	addr, n, err := DecodeString(buf)
	if err != nil {
		return nil, fmt.Errorf("server address: %w", err)
	}
	buf = buf[n:]

	if len(buf) < 2 {
		return nil, fmt.Errorf("missing server port: %w", ErrMalformed)
	}
	port := binary.BigEndian.Uint16(buf[:2])
	buf = buf[2:]

	next, n, err := DecodeVarint(buf)
	if err != nil {
		return nil, fmt.Errorf("next state: %w", ErrMalformed)
	}
	if len(buf) != n {
		return nil, fmt.Errorf("%d trailing bytes after next state: %w", len(buf)-n, ErrMalformed)
	}
	if next != NextStateStatus && next != NextStateLogin {
		return nil, fmt.Errorf("next state %d out of range: %w", next, ErrMalformed)
	}

	return &Handshake{
		ProtocolVersion: version,
		ServerAddress:   addr,
		ServerPort:      port,
		NextState:       next,
	}, nil
}

// EncodeHandshake builds a handshake packet. Only used by tests and
// kept next to the parser so the two stay in sync.
func EncodeHandshake(h *Handshake) []byte {
	payload := AppendVarint(nil, h.ProtocolVersion)
	payload = AppendString(payload, h.ServerAddress)
	payload = binary.BigEndian.AppendUint16(payload, h.ServerPort)
	payload = AppendVarint(payload, h.NextState)
	return EncodePacket(IDHandshake, payload)
}

// ParseLoginStart extracts the player name from a Login Start packet.
// Newer protocol revisions append a UUID after the name; anything after
// a valid name field is accepted and ignored, since confirming the name
// is all that is needed to treat the connection as a real join.
func ParseLoginStart(p *Packet) (string, error) {
	if p.ID != IDLoginStart {
		return "", fmt.Errorf("packet id 0x%02X is not login start: %w", p.ID, ErrMalformed)
	}
	name, _, err := DecodeString(p.Payload)
	if err != nil {
		return "", fmt.Errorf("player name: %w", err)
	}
	if name == "" || len(name) > 16 {
		return "", fmt.Errorf("player name length %d: %w", len(name), ErrMalformed)
	}
	return name, nil
}
