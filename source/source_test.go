package source

import (
	"io"
	"testing"
)

func TestMemoryReadSeek(t *testing.T) {
	m := NewMemory([]byte("hello world"))

	buf := make([]byte, 5)
	if n := m.Read(buf); n != 5 || string(buf) != "hello" {
		t.Fatalf("Read = %d, %q; want 5, %q", n, buf, "hello")
	}
	if !m.Seek(1, Current) {
		t.Fatalf("Seek(1, Current) failed")
	}
	if n := m.Read(buf); n != 5 || string(buf) != "world" {
		t.Fatalf("Read after seek = %d, %q; want 5, %q", n, buf, "world")
	}
	if m.Seek(1000, Start) {
		t.Fatalf("Seek(1000, Start) past end of data should fail")
	}
	if !m.Seek(0, Start) {
		t.Fatalf("Seek(0, Start) failed")
	}
}

func TestMemoryReadAtEOF(t *testing.T) {
	m := NewMemory([]byte("ab"))
	buf := make([]byte, 10)
	if n := m.Read(buf); n != 2 {
		t.Fatalf("Read = %d, want 2", n)
	}
	if n := m.Read(buf); n != 0 {
		t.Fatalf("Read at EOF = %d, want 0", n)
	}
}

func TestCallbackSource(t *testing.T) {
	data := []byte("callback source")
	pos := 0
	cb := &Callback{
		ReadFunc: func(buf []byte) int {
			n := copy(buf, data[pos:])
			pos += n
			return n
		},
		SeekFunc: func(delta int64, origin Origin) bool {
			if origin == Start {
				pos = int(delta)
			} else {
				pos += int(delta)
			}
			return true
		},
	}
	buf := make([]byte, 8)
	if n := cb.Read(buf); n != 8 || string(buf) != "callback" {
		t.Fatalf("Read = %d, %q", n, buf)
	}
	if !cb.Seek(0, Start) {
		t.Fatalf("Seek(0, Start) failed")
	}
	if n := cb.Read(buf); n != 8 || string(buf) != "callback" {
		t.Fatalf("Read after rewind = %d, %q", n, buf)
	}
}

func TestCallbackSourceNoSeekFunc(t *testing.T) {
	cb := &Callback{ReadFunc: func([]byte) int { return 0 }}
	if cb.Seek(0, Start) {
		t.Fatalf("Seek with nil SeekFunc should refuse")
	}
}

func TestReadSeekerAdapter(t *testing.T) {
	m := NewMemory([]byte("0123456789"))
	rs := ReadSeeker(m)

	var b [4]byte
	if _, err := io.ReadFull(rs, b[:]); err != nil {
		t.Fatal(err)
	}
	if string(b[:]) != "0123" {
		t.Fatalf("read = %q, want %q", b, "0123")
	}

	pos, err := rs.Seek(2, io.SeekCurrent)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 6 {
		t.Fatalf("Seek(2, SeekCurrent) = %d, want 6", pos)
	}
	if _, err := io.ReadFull(rs, b[:]); err != nil {
		t.Fatal(err)
	}
	if string(b[:]) != "6789" {
		t.Fatalf("read after seek = %q, want %q", b, "6789")
	}

	if _, err := rs.Seek(0, io.SeekEnd); err == nil {
		t.Fatalf("Seek with io.SeekEnd should be refused: source.Origin has no end-relative mode")
	}
}

func TestReadSeekerAdapterRefusedSeek(t *testing.T) {
	src := &Callback{
		ReadFunc: func([]byte) int { return 0 },
		SeekFunc: func(int64, Origin) bool { return false },
	}
	rs := ReadSeeker(src)
	if _, err := rs.Seek(5, io.SeekStart); err == nil {
		t.Fatalf("Seek should surface the source's refusal as an error")
	}
}
