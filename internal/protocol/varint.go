package protocol

import (
	"errors"
	"fmt"
	"io"
)

// MaxVarintLen is the maximum encoded length of a protocol varint.
// Values are capped at 32 bits, so a 5th byte may carry data but a 6th
// continuation byte can never be valid.
const MaxVarintLen = 5

// ErrVarintOverflow is returned when a varint runs past 5 bytes.
var ErrVarintOverflow = errors.New("varint exceeds 5 bytes")

// AppendVarint appends the Minecraft varint encoding of v to buf and
// returns the extended buffer. Encoding is 7 bits per byte, low group
// first, with the high bit set on every byte except the last.
func AppendVarint(buf []byte, v int32) []byte {
	u := uint32(v)
	for {
		if u&^0x7F == 0 {
			return append(buf, byte(u))
		}
		buf = append(buf, byte(u&0x7F|0x80))
		u >>= 7
	}
}

// DecodeVarint decodes a varint from the front of buf, returning the
// value and the number of bytes consumed.
func DecodeVarint(buf []byte) (int32, int, error) {
	var result uint32
	for i, b := range buf {
		if i == MaxVarintLen {
			return 0, 0, ErrVarintOverflow
		}
		result |= uint32(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return int32(result), i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("varint truncated after %d bytes: %w", len(buf), io.ErrUnexpectedEOF)
}

// ReadVarint reads a varint from r one byte at a time. Used for the
// length prefix, where the remaining packet size is not yet known.
func ReadVarint(r io.Reader) (int32, error) {
	var result uint32
	var one [1]byte
	for i := 0; ; i++ {
		if i == MaxVarintLen {
			return 0, ErrVarintOverflow
		}
		if _, err := io.ReadFull(r, one[:]); err != nil {
			return 0, err
		}
		b := one[0]
		result |= uint32(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return int32(result), nil
		}
	}
}

// VarintLen returns the encoded length of v in bytes.
func VarintLen(v int32) int {
	u := uint32(v)
	n := 1
	for u&^0x7F != 0 {
		n++
		u >>= 7
	}
	return n
}
