// Package bits presents a byte stream as big-endian bits through a two-level
// cache: a register-sized L1 word backed by a small L2 line array that is
// refilled from the source in one bulk read. The common case (enough bits
// already sitting in L1) never touches the L2 array or the source.
package bits

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/farcloser/goflac/internal/crc"
	"github.com/farcloser/goflac/internal/utf8"
)

const (
	// l2Lines is the number of L1-word-sized lines held in the L2 array, each
	// refilled from the source by a single bulk read.
	l2Lines = 32
	// l2WordBytes is the width of one L1 register / L2 line, in bytes.
	l2WordBytes = 8
	l2Bytes     = l2Lines * l2WordBytes
)

// A Reader reads big-endian bits from an underlying byte source, optionally
// accumulating CRC-8 and/or CRC-16 checksums over the bytes as they are
// consumed (not as they are prefetched).
type Reader struct {
	r    io.Reader
	seek io.Seeker

	// L2: a batch of words bulk-read from the source ahead of need.
	l2       [l2Lines]uint64
	l2n      int  // number of valid words staged in l2
	l2next   int  // index of the next word not yet moved into l1
	tailBits uint // valid bit count of the final staged word, if it is a short (EOF) word
	hasTail  bool

	// L1: the register currently supplying bits. Unconsumed bits occupy the
	// high l1n bits; the low (64-l1n) bits are always zero by construction,
	// which lets ReadUnary and ReadRice scan l1 directly with
	// math/bits.LeadingZeros64 without masking.
	l1  uint64
	l1n uint

	// l1Bytes holds the big-endian byte layout of the current l1 word, used
	// to feed CRC updates as bytes become fully consumed. l1Released counts
	// how many of those bytes have already been folded into the CRCs.
	l1Bytes    [l2WordBytes]byte
	l1Released int

	crc16   uint16
	crc8    uint8
	doCRC16 bool
	doCRC8  bool

	exhausted bool

	// totalBits counts every bit ever consumed via takeL1, regardless of
	// Reset. Callers use it to tell "no bits consumed for this attempt"
	// (clean end of stream) from "some bits consumed, then exhausted"
	// (truncated input) without needing a seekable source.
	totalBits uint64
}

// TotalBitsConsumed returns the running count of bits consumed since the
// Reader was created.
func (br *Reader) TotalBitsConsumed() uint64 { return br.totalBits }

// NewReader returns a Reader that reads bits from r. If r also implements
// io.Seeker, the Reader supports Seek.
func NewReader(r io.Reader) *Reader {
	br := &Reader{r: r}
	if s, ok := r.(io.Seeker); ok {
		br.seek = s
	}
	return br
}

// reload bulk-reads up to l2Bytes bytes from the source into the L2 array,
// aligned to word boundaries. A short read at end of stream is kept as a
// final partial word rather than discarded, so the tail of a stream that
// isn't a multiple of 8 bytes is still readable.
func (br *Reader) reload() error {
	if br.exhausted {
		return io.EOF
	}
	var buf [l2Bytes]byte
	n, err := io.ReadFull(br.r, buf[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return err
	}
	if n == 0 {
		br.exhausted = true
		return io.EOF
	}

	full := n / l2WordBytes
	rem := n % l2WordBytes
	for i := 0; i < full; i++ {
		br.l2[i] = binary.BigEndian.Uint64(buf[i*l2WordBytes:])
	}
	br.hasTail = false
	br.l2n = full
	if rem > 0 {
		var tail [l2WordBytes]byte
		copy(tail[:rem], buf[full*l2WordBytes:n])
		br.l2[full] = binary.BigEndian.Uint64(tail[:])
		br.tailBits = uint(rem) * 8
		br.hasTail = true
		br.l2n = full + 1
	}
	br.l2next = 0
	if err != nil {
		// Fewer bytes than requested: the source has nothing left after this.
		br.exhausted = true
	}
	return nil
}

// fillL1 moves the next staged L2 word into L1, reloading L2 first if
// necessary.
func (br *Reader) fillL1() error {
	for br.l2next >= br.l2n {
		if err := br.reload(); err != nil {
			return err
		}
	}
	word := br.l2[br.l2next]
	isTail := br.hasTail && br.l2next == br.l2n-1
	br.l2next++

	binary.BigEndian.PutUint64(br.l1Bytes[:], word)
	br.l1 = word
	if isTail {
		br.l1n = br.tailBits
	} else {
		br.l1n = 64
	}
	br.l1Released = 0
	return nil
}

// takeL1 removes and returns the top n bits of l1 (n <= l1n), releasing any
// newly-completed bytes to the active CRCs.
func (br *Reader) takeL1(n uint) uint64 {
	x := br.l1 >> (64 - n)
	br.l1 <<= n
	br.l1n -= n
	br.totalBits += uint64(n)
	br.releaseCRC()
	return x
}

// releaseCRC feeds the CRCs any bytes of the current l1 word that have become
// fully consumed since the last release.
func (br *Reader) releaseCRC() {
	// A short tail word starts with l1n = tailBits, not 64.
	width := uint(64)
	if br.hasTail && br.l2next == br.l2n {
		width = br.tailBits
	}
	consumed := int(width-br.l1n) / 8
	if consumed > br.l1Released {
		br.feedCRC(br.l1Bytes[br.l1Released:consumed])
		br.l1Released = consumed
	}
}

func (br *Reader) feedCRC(p []byte) {
	if len(p) == 0 {
		return
	}
	if br.doCRC16 {
		br.crc16 = crc.Update16(br.crc16, crc.IBMTable, p)
	}
	if br.doCRC8 {
		br.crc8 = crc.Update8(br.crc8, crc.ATMTable, p)
	}
}

// readBits reads the next n bits (1 <= n <= 64) as an unsigned integer,
// MSB-first.
func (br *Reader) readBits(n uint) (uint64, error) {
	if br.l1n >= n {
		return br.takeL1(n), nil
	}

	var x uint64
	got := br.l1n
	if got > 0 {
		x = br.takeL1(got)
	}
	need := n - got
	for need > 0 {
		if err := br.fillL1(); err != nil {
			return 0, err
		}
		take := need
		if take > br.l1n {
			take = br.l1n
		}
		x = x<<take | br.takeL1(take)
		need -= take
	}
	return x, nil
}

// Read reads the next n bits (1 <= n <= 32) as an unsigned integer.
func (br *Reader) Read(n uint) (uint64, error) {
	if n == 0 || n > 32 {
		return 0, fmt.Errorf("bits.Reader.Read: n=%d out of range [1,32]", n)
	}
	return br.readBits(n)
}

// Read64 reads the next n bits (33 <= n <= 64) as an unsigned integer,
// assembled from two Read calls so a caller tracing the spec's wording sees
// the same two-call shape it describes.
func (br *Reader) Read64(n uint) (uint64, error) {
	if n < 33 || n > 64 {
		return 0, fmt.Errorf("bits.Reader.Read64: n=%d out of range [33,64]", n)
	}
	hi, err := br.Read(n - 32)
	if err != nil {
		return 0, err
	}
	lo, err := br.Read(32)
	if err != nil {
		return 0, err
	}
	return hi<<32 | lo, nil
}

// ReadInt reads the next n bits (1 <= n <= 32) as a two's-complement signed
// integer, sign-extended from bit n-1.
func (br *Reader) ReadInt(n uint) (int32, error) {
	x, err := br.Read(n)
	if err != nil {
		return 0, err
	}
	return SignExtend32(x, n), nil
}

// SignExtend32 sign-extends the low n bits of x (1 <= n <= 32) to a signed
// 32-bit integer, testing the top bit explicitly rather than relying on a
// native signed shift.
func SignExtend32(x uint64, n uint) int32 {
	if x&(1<<(n-1)) != 0 {
		return int32(x | ^uint64(0)<<n)
	}
	return int32(x)
}

// SeekBits advances the bit position by n bits without returning their value.
func (br *Reader) SeekBits(n uint) error {
	for n > 64 {
		if _, err := br.readBits(64); err != nil {
			return err
		}
		n -= 64
	}
	if n > 0 {
		if _, err := br.readBits(n); err != nil {
			return err
		}
	}
	return nil
}

// AtByteBoundary reports whether the current bit position is byte-aligned.
func (br *Reader) AtByteBoundary() bool {
	return br.l1n%8 == 0
}

// PadToByte advances to the next byte boundary, discarding any padding bits.
// It is a no-op if the reader is already aligned.
func (br *Reader) PadToByte() error {
	if n := br.l1n % 8; n != 0 {
		if _, err := br.readBits(n); err != nil {
			return err
		}
	}
	return nil
}

// ReadUTF8Number reads one FLAC "UTF-8" coded integer (used for frame and
// sample numbers). The reader must be byte-aligned.
func (br *Reader) ReadUTF8Number() (uint64, error) {
	if !br.AtByteBoundary() {
		return 0, fmt.Errorf("bits.Reader.ReadUTF8Number: reader is not byte-aligned")
	}
	return utf8.Decode(byteReader{br})
}

// byteReader adapts Reader to io.Reader, one byte at a time, for callers
// (like internal/utf8) that want ordinary byte-oriented reads.
type byteReader struct{ br *Reader }

func (b byteReader) Read(p []byte) (int, error) {
	for i := range p {
		x, err := b.br.readBits(8)
		if err != nil {
			return i, err
		}
		p[i] = byte(x)
	}
	return len(p), nil
}

// EnableCRC8 resets and starts CRC-8 accumulation from the next bit consumed.
func (br *Reader) EnableCRC8() {
	br.crc8 = 0
	br.doCRC8 = true
}

// DisableCRC8 stops CRC-8 accumulation.
func (br *Reader) DisableCRC8() { br.doCRC8 = false }

// CRC8 returns the CRC-8 accumulated since EnableCRC8.
func (br *Reader) CRC8() uint8 { return br.crc8 }

// EnableCRC16 resets and starts CRC-16 accumulation from the next bit
// consumed.
func (br *Reader) EnableCRC16() {
	br.crc16 = 0
	br.doCRC16 = true
}

// DisableCRC16 stops CRC-16 accumulation.
func (br *Reader) DisableCRC16() { br.doCRC16 = false }

// CRC16 returns the CRC-16 accumulated since EnableCRC16.
func (br *Reader) CRC16() uint16 { return br.crc16 }

// bufferedBytes reports how many source bytes are currently held unconsumed
// in l1/l2, for Tell/Seek accounting against the underlying io.Seeker.
func (br *Reader) bufferedBytes() int64 {
	var n int64
	for i := br.l2next; i < br.l2n; i++ {
		if br.hasTail && i == br.l2n-1 {
			n += int64(br.tailBits / 8)
		} else {
			n += l2WordBytes
		}
	}
	if br.l1n > 0 {
		n += int64((br.l1n + 7) / 8)
	}
	return n
}

// Reset discards all buffered/cached state, including CRC accumulation. Call
// this before repositioning the underlying source out from under the Reader.
func (br *Reader) Reset() {
	br.l1, br.l1n = 0, 0
	br.l2n, br.l2next = 0, 0
	br.hasTail, br.tailBits = false, 0
	br.exhausted = false
	br.crc8, br.crc16 = 0, 0
	br.doCRC8, br.doCRC16 = false, false
}

// Tell returns the current absolute byte position in the source, derived from
// the underlying io.Seeker's position minus whatever is still buffered ahead
// of the logical read point.
func (br *Reader) Tell() (int64, error) {
	if br.seek == nil {
		return 0, fmt.Errorf("bits.Reader.Tell: underlying reader does not implement io.Seeker")
	}
	pos, err := br.seek.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	return pos - br.bufferedBytes(), nil
}

// Seek repositions the bit reader to a byte offset in the source, discarding
// all cached state. whence follows io.Seeker conventions; the result is
// always byte-aligned.
func (br *Reader) Seek(offset int64, whence int) (int64, error) {
	if br.seek == nil {
		return 0, fmt.Errorf("bits.Reader.Seek: underlying reader does not implement io.Seeker")
	}
	if whence == io.SeekCurrent {
		cur, err := br.Tell()
		if err != nil {
			return 0, err
		}
		offset += cur
		whence = io.SeekStart
	}
	br.Reset()
	return br.seek.Seek(offset, whence)
}
