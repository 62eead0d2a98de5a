package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadPacketRoundTrip(t *testing.T) {
	payload := []byte("hello")
	var buf bytes.Buffer
	if err := WritePacket(&buf, IDPing, payload); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}

	pkt, err := ReadPacket(&buf)
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if pkt.ID != IDPing {
		t.Errorf("ID = %d, want %d", pkt.ID, IDPing)
	}
	if !bytes.Equal(pkt.Payload, payload) {
		t.Errorf("Payload = %q, want %q", pkt.Payload, payload)
	}
	if buf.Len() != 0 {
		t.Errorf("%d bytes left unread", buf.Len())
	}
}

func TestReadPacketErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty stream", nil, ErrTruncated},
		{"body shorter than declared", []byte{0x05, 0x00, 0x01}, ErrTruncated},
		{"length prefix cut mid-varint", []byte{0x80}, ErrTruncated},
		{"zero length", []byte{0x00}, ErrMalformed},
		{"length over cap", AppendVarint(nil, MaxPacketSize+1), ErrMalformed},
		{"overlong length prefix", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}, ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPacket(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("ReadPacket(% X) err = %v, want %v", tt.data, err, tt.want)
			}
		})
	}
}

func TestDecodeString(t *testing.T) {
	buf := AppendString(nil, "mc.example.com")
	buf = append(buf, 0xFF) // trailing byte belonging to the next field

	s, n, err := DecodeString(buf)
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	if s != "mc.example.com" {
		t.Errorf("s = %q", s)
	}
	if n != len(buf)-1 {
		t.Errorf("n = %d, want %d", n, len(buf)-1)
	}

	// Declared length overrunning the payload is malformed.
	bad := AppendVarint(nil, 10)
	bad = append(bad, 'a', 'b')
	if _, _, err := DecodeString(bad); !errors.Is(err, ErrMalformed) {
		t.Errorf("overrun err = %v, want ErrMalformed", err)
	}
}
