// Package bufseekio wraps an io.ReadSeeker with a bufio.Reader-sized read-ahead
// buffer while still exposing Seek, invalidating the buffer on every
// reposition. bufio.Reader itself has no Seek method, so a plain bufio wrapper
// cannot be handed to code (like bits.Reader) that needs both buffered reads
// and the ability to reposition the underlying source.
package bufseekio

import "io"

const defaultBufSize = 4096

// ReadSeeker buffers reads from an underlying io.ReadSeeker.
type ReadSeeker struct {
	rs  io.ReadSeeker
	buf []byte
	// r, w delimit the valid, unconsumed region of buf.
	r, w int
}

// NewReadSeeker returns a ReadSeeker that buffers reads from rs using the
// default buffer size.
func NewReadSeeker(rs io.ReadSeeker) *ReadSeeker {
	return NewReadSeekerSize(rs, defaultBufSize)
}

// NewReadSeekerSize returns a ReadSeeker whose buffer is size bytes.
func NewReadSeekerSize(rs io.ReadSeeker, size int) *ReadSeeker {
	if size < 1 {
		size = defaultBufSize
	}
	return &ReadSeeker{rs: rs, buf: make([]byte, size)}
}

func (b *ReadSeeker) buffered() int { return b.w - b.r }

// fill reads more data into the buffer, compacting first if necessary.
func (b *ReadSeeker) fill() error {
	if b.r > 0 {
		copy(b.buf, b.buf[b.r:b.w])
		b.w -= b.r
		b.r = 0
	}
	if b.w >= len(b.buf) {
		return nil
	}
	n, err := b.rs.Read(b.buf[b.w:])
	b.w += n
	if n > 0 {
		return nil
	}
	return err
}

// Read implements io.Reader. Short reads are legal: Read returns as much data
// as is currently available without forcing more than one underlying Read.
func (b *ReadSeeker) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.buffered() == 0 {
		if len(p) >= len(b.buf) {
			// Bypass the buffer for reads at least as large as it.
			return b.rs.Read(p)
		}
		if err := b.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, b.buf[b.r:b.w])
	b.r += n
	return n, nil
}

// Seek implements io.Seeker, discarding the buffer and repositioning the
// underlying source. A current-origin seek is adjusted by the amount of data
// still buffered ahead of the logical read point, so callers see a seek
// relative to what they have actually consumed through Read.
func (b *ReadSeeker) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekCurrent {
		offset -= int64(b.buffered())
	}
	pos, err := b.rs.Seek(offset, whence)
	if err != nil {
		return pos, err
	}
	b.r, b.w = 0, 0
	return pos, nil
}
