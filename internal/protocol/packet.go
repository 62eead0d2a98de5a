// Package protocol implements the subset of the Minecraft Java Edition
// wire protocol MCNap needs: the varint codec, length-prefixed packet
// framing, the handshake/status/login packets and the synthesized status
// response. Packets are a varint length prefix followed by a varint
// packet id and the payload.
package protocol

import (
	"errors"
	"fmt"
	"io"
)

// Packet ids used during the handshake, status and login phases.
const (
	IDHandshake       int32 = 0x00
	IDStatusRequest   int32 = 0x00
	IDStatusResponse  int32 = 0x00
	IDLoginStart      int32 = 0x00
	IDLoginDisconnect int32 = 0x00
	IDPing            int32 = 0x01
	IDPong            int32 = 0x01
)

// MaxPacketSize bounds the declared packet length. Handshake, status
// request and login start packets are all tiny; anything larger is a
// client we do not want to talk to.
const MaxPacketSize = 4096

var (
	// ErrTruncated means the stream closed before the declared packet
	// length was satisfied.
	ErrTruncated = errors.New("truncated packet")

	// ErrMalformed means the packet violated the framing contract:
	// declared length not matching the bytes consumed by id+payload,
	// a negative or oversized length, or an invalid varint.
	ErrMalformed = errors.New("malformed packet")
)

// Packet is a decoded frame: packet id plus raw payload.
type Packet struct {
	ID      int32
	Payload []byte
}

// ReadPacket reads one length-prefixed packet from r.
// The declared length must equal the encoded size of id+payload exactly;
// a mismatch is a protocol error, not a partial read.
func ReadPacket(r io.Reader) (*Packet, error) {
	length, err := ReadVarint(r)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("reading length prefix: %w", ErrTruncated)
		}
		return nil, fmt.Errorf("reading length prefix: %w", ErrMalformed)
	}
	if length <= 0 || length > MaxPacketSize {
		return nil, fmt.Errorf("declared length %d: %w", length, ErrMalformed)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("reading %d-byte body: %w", length, ErrTruncated)
	}

	id, n, err := DecodeVarint(body)
	if err != nil {
		return nil, fmt.Errorf("decoding packet id: %w", ErrMalformed)
	}
	if id < 0 {
		return nil, fmt.Errorf("negative packet id %d: %w", id, ErrMalformed)
	}

	return &Packet{ID: id, Payload: body[n:]}, nil
}

// WritePacket frames id+payload with a varint length prefix.
func WritePacket(w io.Writer, id int32, payload []byte) error {
	_, err := w.Write(EncodePacket(id, payload))
	return err
}

// EncodePacket returns the full wire encoding of a packet.
func EncodePacket(id int32, payload []byte) []byte {
	bodyLen := int32(VarintLen(id) + len(payload))
	buf := make([]byte, 0, int(bodyLen)+MaxVarintLen)
	buf = AppendVarint(buf, bodyLen)
	buf = AppendVarint(buf, id)
	return append(buf, payload...)
}

// AppendString appends a varint-length-prefixed UTF-8 string.
func AppendString(buf []byte, s string) []byte {
	buf = AppendVarint(buf, int32(len(s)))
	return append(buf, s...)
}

// DecodeString decodes a varint-length-prefixed string from the front of
// buf, returning the string and bytes consumed.
func DecodeString(buf []byte) (string, int, error) {
	length, n, err := DecodeVarint(buf)
	if err != nil {
		return "", 0, fmt.Errorf("string length: %w", ErrMalformed)
	}
	if length < 0 || int(length) > len(buf)-n {
		return "", 0, fmt.Errorf("string length %d overruns payload: %w", length, ErrMalformed)
	}
	return string(buf[n : n+int(length)]), n + int(length), nil
}
