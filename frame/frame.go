package frame

import (
	"fmt"

	"github.com/farcloser/goflac/internal/bits"
)

// Frame is one parsed FLAC frame: a header plus one subframe per stored
// channel, fully decoded and, in Parse (not New), recomposed into
// independent channels.
type Frame struct {
	Header
	// Subframes holds one entry per stored channel (2 for side/mid-side
	// assignments, Header.Channels.Count() otherwise), in on-disk order.
	Subframes []*Subframe
	// CRC16 is the footer checksum as read from the stream.
	CRC16 uint16
	// ComputedCRC16 is the checksum this package computed over the frame.
	ComputedCRC16 uint16
}

// New reads and parses only the frame header, leaving the bit reader
// positioned at the start of the first subframe. Used by callers that only
// need frame boundaries (e.g. the seek engine's frame-header scan).
func New(br *bits.Reader, streamSampleRate uint32, streamBitsPerSample uint8) (*Frame, error) {
	hdr, err := parseHeader(br, streamSampleRate, streamBitsPerSample)
	if err != nil {
		return nil, err
	}
	return &Frame{Header: hdr}, nil
}

// Parse reads and fully decodes the next frame: header, every subframe, the
// byte-alignment pad, and the CRC-16 footer. Channel recomposition (undoing
// left-side/right-side/mid-side decorrelation) is applied before returning.
func Parse(br *bits.Reader, streamSampleRate uint32, streamBitsPerSample uint8) (*Frame, error) {
	br.EnableCRC16()
	f, err := New(br, streamSampleRate, streamBitsPerSample)
	if err != nil {
		return nil, err
	}

	n := f.Channels.Count()
	f.Subframes = make([]*Subframe, n)
	for ch := 0; ch < n; ch++ {
		bps := f.BitsPerSample + f.Channels.ExtraBits(ch)
		sf, err := decodeSubframe(br, int(f.BlockSize), bps)
		if err != nil {
			return nil, fmt.Errorf("frame.Parse: channel %d: %w", ch, err)
		}
		f.Subframes[ch] = sf
	}

	if !f.Channels.IsIndependent() {
		dst := make([][]int32, 2)
		dst[0] = f.Subframes[0].Samples
		dst[1] = f.Subframes[1].Samples
		f.Channels.Recompose(dst, int(f.BlockSize))
	}

	// Byte-align before the CRC-16 footer.
	if err := br.PadToByte(); err != nil {
		return nil, err
	}

	f.ComputedCRC16 = br.CRC16()
	crc16, err := br.Read(16)
	if err != nil {
		return nil, err
	}
	f.CRC16 = uint16(crc16)
	br.DisableCRC16()

	return f, nil
}

// NumChannels returns the number of subframes this frame carries, equal to
// Header.Channels.Count().
func (f *Frame) NumChannels() int { return f.Channels.Count() }

// Samples returns the decoded, channel-recomposed samples for channel ch.
func (f *Frame) Samples(ch int) []int32 { return f.Subframes[ch].Samples }
