package utf8

import (
	"bytes"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want uint64
	}{
		{"single byte", []byte{0x41}, 0x41},
		{"two byte", []byte{0xC4, 0xAC}, 300},
		{"three byte", []byte{0xE0, 0xA0, 0x80}, 2048},
		{"six byte", []byte{0xFC, 0x84, 0x80, 0x80, 0x80, 0x80}, 1 << 26},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(bytes.NewReader(tt.in))
			if err != nil {
				t.Fatalf("Decode(%x): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("Decode(%x) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeRejectsOverlong(t *testing.T) {
	// A two-byte encoding of a value that fits in a single byte is an
	// over-long encoding and must be rejected.
	_, err := Decode(bytes.NewReader([]byte{0xC1, 0x81}))
	if err == nil {
		t.Fatalf("Decode accepted an over-long two-byte encoding")
	}
}

func TestDecodeTruncated(t *testing.T) {
	// Leading byte promises a continuation byte that never arrives.
	_, err := Decode(bytes.NewReader([]byte{0xC4}))
	if err == nil {
		t.Fatalf("Decode accepted a truncated multi-byte encoding")
	}
}
