// Package frame implements access to FLAC audio frames.
//
// A FLAC stream consists of a sequence of frames, each holding one subframe
// per channel. Each frame is preceded by a frame header describing its
// blocking strategy, block size, sample rate, channel assignment and bit
// depth, followed by the compressed subframes and a byte-aligned CRC-16
// footer.
//
//	ref: https://www.xiph.org/flac/format.html#frame
package frame

import (
	"errors"
	"fmt"

	"github.com/farcloser/goflac/internal/bits"
)

// Sync code marking the start of every FLAC frame (14 bits: 0x3FFE).
const syncCode = 0x3FFE

// Sentinel errors for malformed frame headers.
var (
	ErrBadSyncCode    = errors.New("frame: invalid sync code")
	ErrReservedField  = errors.New("frame: reserved field value")
	ErrInvalidBitsPS  = errors.New("frame: reserved bits-per-sample code")
	ErrZeroSampleRate = errors.New("frame: sample rate is zero")
)

// blockSizeTable maps a 4-bit block-size code to its block size in samples;
// code 0 is reserved, and codes 6 and 7 (8-/16-bit inline extension) are
// handled separately.
var blockSizeTable = [16]uint32{
	0:  0, // reserved
	1:  192,
	2:  576,
	3:  1152,
	4:  2304,
	5:  4608,
	6:  0, // 8-bit inline extension
	7:  0, // 16-bit inline extension
	8:  256,
	9:  512,
	10: 1024,
	11: 2048,
	12: 4096,
	13: 8192,
	14: 16384,
	15: 32768,
}

// sampleRateTable maps a 4-bit sample-rate code to Hz; 0 means "use
// StreamInfo's rate", codes 12-14 read an inline extension, 15 is invalid.
var sampleRateTable = [16]uint32{
	1: 88200,
	2: 176400,
	3: 192000,
	4: 8000,
	5: 16000,
	6: 22050,
	7: 24000,
	8: 32000,
	9: 44100,
	10: 48000,
	11: 96000,
}

// bitsPerSampleTable maps a 3-bit code to bit depth; 0 means "use
// StreamInfo's depth".
var bitsPerSampleTable = [8]uint8{
	0: 0,
	1: 8,
	2: 12,
	3: 0, // reserved
	4: 16,
	5: 20,
	6: 24,
	7: 0, // reserved
}

// BlockingStrategy distinguishes fixed from variable block-size streams,
// which determines whether the frame header's variable-length number names a
// frame index or an absolute sample number.
type BlockingStrategy uint8

const (
	// FixedBlockSize streams encode a frame number; every frame before the
	// last uses the same block size.
	FixedBlockSize BlockingStrategy = iota
	// VariableBlockSize streams encode the absolute sample number of the
	// frame's first sample directly.
	VariableBlockSize
)

// Header holds the parsed parameters of one FLAC frame.
//
// ref: https://www.xiph.org/flac/format.html#frame_header
type Header struct {
	// Blocking strategy used by the stream.
	BlockingStrategy BlockingStrategy
	// Block size in samples (PCM frames) of this FLAC frame.
	BlockSize uint16
	// Sample rate in Hz.
	SampleRate uint32
	// Channel assignment and channel count.
	Channels ChannelAssignment
	// Bits per sample.
	BitsPerSample uint8
	// Raw frame number (fixed blocking) or sample number (variable
	// blocking) decoded from the header's variable-length field.
	Num uint64
	// Absolute sample number of the frame's first sample, resolved from Num
	// and (for fixed blocking) BlockSize.
	SampleNum uint64
	// CRC-8 of the header as read from the stream; only meaningful when the
	// decoder was asked to validate it.
	CRC8 uint8
	// ComputedCRC8 is the CRC-8 this package computed over the header bytes;
	// compared against CRC8 only when the caller enabled validation.
	ComputedCRC8 uint8
}

// parseHeader reads and parses a frame header from br, which must be
// positioned at the sync code; a mismatch returns ErrBadSyncCode without
// scanning ahead. streamSampleRate and streamBitsPerSample supply StreamInfo's
// defaults for codes that mean "use the stream's value".
func parseHeader(br *bits.Reader, streamSampleRate uint32, streamBitsPerSample uint8) (Header, error) {
	var hdr Header

	br.EnableCRC8()

	sync, err := br.Read(14)
	if err != nil {
		return hdr, err
	}
	if sync != syncCode {
		return hdr, fmt.Errorf("frame.parseHeader: %w: got %#x, want %#x", ErrBadSyncCode, sync, syncCode)
	}

	// 1 reserved bit, must be 0.
	if _, err := br.Read(1); err != nil {
		return hdr, err
	}

	strategy, err := br.Read(1)
	if err != nil {
		return hdr, err
	}
	if strategy == 0 {
		hdr.BlockingStrategy = FixedBlockSize
	} else {
		hdr.BlockingStrategy = VariableBlockSize
	}

	blockSizeCode, err := br.Read(4)
	if err != nil {
		return hdr, err
	}
	sampleRateCode, err := br.Read(4)
	if err != nil {
		return hdr, err
	}
	channelCode, err := br.Read(4)
	if err != nil {
		return hdr, err
	}
	channels, err := parseChannelAssignment(uint8(channelCode))
	if err != nil {
		return hdr, err
	}
	hdr.Channels = channels

	bpsCode, err := br.Read(3)
	if err != nil {
		return hdr, err
	}
	bps := bitsPerSampleTable[bpsCode]
	if bps == 0 {
		if bpsCode == 0 {
			bps = streamBitsPerSample
		} else {
			return hdr, fmt.Errorf("frame.parseHeader: %w: bits-per-sample code %d", ErrInvalidBitsPS, bpsCode)
		}
	}
	hdr.BitsPerSample = bps

	// 1 reserved bit, must be 0.
	if _, err := br.Read(1); err != nil {
		return hdr, err
	}

	num, err := br.ReadUTF8Number()
	if err != nil {
		return hdr, err
	}
	hdr.Num = num

	blockSize := blockSizeTable[blockSizeCode]
	switch blockSizeCode {
	case 6:
		x, err := br.Read(8)
		if err != nil {
			return hdr, err
		}
		blockSize = uint32(x) + 1
	case 7:
		x, err := br.Read(16)
		if err != nil {
			return hdr, err
		}
		blockSize = uint32(x) + 1
	}
	if blockSize == 0 {
		return hdr, fmt.Errorf("frame.parseHeader: %w: reserved block-size code 0", ErrReservedField)
	}
	hdr.BlockSize = uint16(blockSize)

	sampleRate := sampleRateTable[sampleRateCode]
	switch sampleRateCode {
	case 0:
		sampleRate = streamSampleRate
	case 12:
		x, err := br.Read(8)
		if err != nil {
			return hdr, err
		}
		sampleRate = uint32(x) * 1000
	case 13:
		x, err := br.Read(16)
		if err != nil {
			return hdr, err
		}
		sampleRate = uint32(x)
	case 14:
		x, err := br.Read(16)
		if err != nil {
			return hdr, err
		}
		sampleRate = uint32(x) * 10
	case 15:
		return hdr, fmt.Errorf("frame.parseHeader: %w: sample-rate code 15", ErrReservedField)
	}
	if sampleRate == 0 {
		return hdr, ErrZeroSampleRate
	}
	hdr.SampleRate = sampleRate

	// CRC-8 covers every preceding header byte but not the checksum byte
	// itself, so the computed value must be captured before reading it.
	hdr.ComputedCRC8 = br.CRC8()
	crc8, err := br.Read(8)
	if err != nil {
		return hdr, err
	}
	hdr.CRC8 = uint8(crc8)
	br.DisableCRC8()

	if hdr.BlockingStrategy == FixedBlockSize {
		hdr.SampleNum = hdr.Num * uint64(hdr.BlockSize)
	} else {
		hdr.SampleNum = hdr.Num
	}

	return hdr, nil
}

// SampleNumber returns the absolute sample number of the frame's first PCM
// frame.
func (h Header) SampleNumber() uint64 { return h.SampleNum }
