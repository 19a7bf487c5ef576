package meta

import (
	"fmt"

	"github.com/farcloser/goflac/internal/bits"
)

// StreamInfoLength is the fixed on-disk size in bytes of a StreamInfo block
// body.
const StreamInfoLength = 34

// StreamInfo contains the basic properties of a FLAC audio stream, such as
// its sample rate and channel count. It is the only mandatory metadata block,
// and must be the first block of a FLAC stream.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_streaminfo
type StreamInfo struct {
	// Minimum block size in samples used in the stream, excluding the last
	// block.
	BlockSizeMin uint16
	// Maximum block size in samples used in the stream.
	BlockSizeMax uint16
	// Minimum frame size in bytes used in the stream; 0 if unknown.
	FrameSizeMin uint32
	// Maximum frame size in bytes used in the stream; 0 if unknown.
	FrameSizeMax uint32
	// Sample rate in Hz; between 1 and 655350.
	SampleRate uint32
	// Number of channels; between 1 and 8.
	NChannels uint8
	// Number of bits per sample; between 4 and 32.
	BitsPerSample uint8
	// Total number of inter-channel samples in the stream; 0 if unknown.
	NSamples uint64
	// MD5 checksum of the unencoded audio data, stored but never validated by
	// this package.
	MD5sum [16]byte
}

// parseStreamInfo reads and parses the body of a StreamInfo metadata block.
func (block *Block) parseStreamInfo() error {
	if block.Length != StreamInfoLength {
		return fmt.Errorf("meta.parseStreamInfo: invalid StreamInfo block length; expected %d, got %d", StreamInfoLength, block.Length)
	}
	br := bits.NewReader(block.lr)
	si := new(StreamInfo)

	x, err := br.Read(16)
	if err != nil {
		return unexpected(err)
	}
	si.BlockSizeMin = uint16(x)

	x, err = br.Read(16)
	if err != nil {
		return unexpected(err)
	}
	si.BlockSizeMax = uint16(x)

	x, err = br.Read(24)
	if err != nil {
		return unexpected(err)
	}
	si.FrameSizeMin = uint32(x)

	x, err = br.Read(24)
	if err != nil {
		return unexpected(err)
	}
	si.FrameSizeMax = uint32(x)

	x, err = br.Read(20)
	if err != nil {
		return unexpected(err)
	}
	si.SampleRate = uint32(x)
	if si.SampleRate == 0 {
		return fmt.Errorf("meta.parseStreamInfo: invalid sample rate; must be non-zero")
	}

	x, err = br.Read(3)
	if err != nil {
		return unexpected(err)
	}
	si.NChannels = uint8(x) + 1

	x, err = br.Read(5)
	if err != nil {
		return unexpected(err)
	}
	si.BitsPerSample = uint8(x) + 1

	x64, err := br.Read64(36)
	if err != nil {
		return unexpected(err)
	}
	si.NSamples = x64

	for i := range si.MD5sum {
		b, err := br.Read(8)
		if err != nil {
			return unexpected(err)
		}
		si.MD5sum[i] = byte(b)
	}

	block.Body = si
	return nil
}
