package flac

import (
	"errors"
	"fmt"
	"io"

	"github.com/farcloser/goflac/frame"
)

// toS32 scales a native-bit-depth sample to fill the signed 32-bit range.
func toS32(sample int32, bps uint8) int32 {
	return sample << (32 - bps)
}

// toS16 narrows a signed-32-bit sample to 16 bits by arithmetic shift.
func toS16(s32 int32) int16 {
	return int16(s32 >> 16)
}

// toF32 converts a signed-32-bit sample to an IEEE float in [-1, 1).
func toF32(s32 int32) float32 {
	const scale = 1.0 / 2147483648.0 // 1 / 2^31
	return float32(s32) * scale
}

// ReadS32 fills buf (interleaved, len(buf) a multiple of Info.NChannels) with
// samples left-shifted to fill the signed 32-bit range, and returns the
// number of PCM frames written. It returns io.EOF only when no further
// samples exist; a partial final read returns n > 0 with a nil error, and
// the next call returns 0, io.EOF.
func (s *Stream) ReadS32(buf []int32) (int, error) {
	return readInto(s, buf, func(v int32, bps uint8) int32 { return toS32(v, bps) })
}

// ReadS16 fills buf the same way as ReadS32, narrowed to 16 bits.
func (s *Stream) ReadS16(buf []int16) (int, error) {
	return readInto(s, buf, func(v int32, bps uint8) int16 { return toS16(toS32(v, bps)) })
}

// ReadF32 fills buf the same way as ReadS32, converted to IEEE float.
func (s *Stream) ReadF32(buf []float32) (int, error) {
	return readInto(s, buf, func(v int32, bps uint8) float32 { return toF32(toS32(v, bps)) })
}

// Discard advances the decoder by n PCM frames without producing output,
// decoding and throwing away whatever frames that requires, with the same
// frame-advance logic as the public Read* methods. At end of stream it
// returns the number of frames skipped with a nil error. Seek does not call
// it: the seek strategies advance through frames with their own scanForward
// loop.
func (s *Stream) Discard(n int) (int, error) {
	produced := 0
	for produced < n {
		if err := s.ensureFrame(); err != nil {
			if err == io.EOF {
				return produced, nil
			}
			return produced, err
		}
		avail := int(s.cur.BlockSize) - s.curPos
		take := n - produced
		if take > avail {
			take = avail
		}
		s.curPos += take
		s.sampleCursor += uint64(take)
		produced += take
	}
	return produced, nil
}

// readInto is the shared body of ReadS32/ReadS16/ReadF32, parameterized over
// the output sample type.
func readInto[T any](s *Stream, out []T, convert func(int32, uint8) T) (int, error) {
	channels := int(s.Info.NChannels)
	if len(out)%channels != 0 {
		return 0, fmt.Errorf("flac.Stream: output buffer length %d is not a multiple of channel count %d", len(out), channels)
	}
	framesRequested := len(out) / channels
	produced := 0

	for produced < framesRequested {
		if err := s.ensureFrame(); err != nil {
			// nextFrame returns bare io.EOF only for a clean end of stream;
			// a truncated frame arrives as a *DecodeError and is reported.
			if err == io.EOF {
				if produced == 0 {
					return 0, io.EOF
				}
				return produced, nil
			}
			return produced, err
		}
		avail := int(s.cur.BlockSize) - s.curPos
		take := framesRequested - produced
		if take > avail {
			take = avail
		}
		bps := s.Info.BitsPerSample
		for i := 0; i < take; i++ {
			base := (produced + i) * channels
			for ch := 0; ch < channels; ch++ {
				out[base+ch] = convert(s.cur.Samples(ch)[s.curPos+i], bps)
			}
		}
		produced += take
		s.curPos += take
		s.sampleCursor += uint64(take)
	}
	return produced, nil
}

// ensureFrame makes sure s.cur has at least one unread sample, parsing the
// next frame if the current one (if any) is fully consumed.
func (s *Stream) ensureFrame() error {
	if s.cur != nil && s.curPos < int(s.cur.BlockSize) {
		return nil
	}
	return s.nextFrame()
}

// nextFrame parses the next frame into s.cur, resetting s.curPos to 0.
// A clean end of stream (no bytes consumed attempting this frame) returns
// io.EOF; running out of input partway through a frame returns a
// *DecodeError with ErrKindTruncatedInput and discards the partial frame.
func (s *Stream) nextFrame() error {
	before := s.br.TotalBitsConsumed()
	f, err := frame.Parse(s.br, s.Info.SampleRate, s.Info.BitsPerSample)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if s.br.TotalBitsConsumed() == before {
				return io.EOF
			}
			return newErr(ErrKindTruncatedInput, -1, err)
		}
		return classifyFrameError(err)
	}

	if got, want := f.Channels.Count(), int(s.Info.NChannels); got != want {
		return newErr(ErrKindBadSubframeHeader, -1, fmt.Errorf("flac.Stream.nextFrame: channel count mismatch; frame has %d channels, StreamInfo has %d", got, want))
	}

	if s.opts.ValidateCRC {
		if f.CRC8 != f.Header.ComputedCRC8 {
			return newErr(ErrKindBadSyncCode, -1, fmt.Errorf("flac.Stream.nextFrame: frame header CRC-8 mismatch: stored %#x, computed %#x", f.CRC8, f.Header.ComputedCRC8))
		}
		if f.CRC16 != f.ComputedCRC16 {
			return newErr(ErrKindBadResidual, -1, fmt.Errorf("flac.Stream.nextFrame: frame CRC-16 mismatch: stored %#x, computed %#x", f.CRC16, f.ComputedCRC16))
		}
	}

	s.cur = f
	s.curPos = 0
	return nil
}

// classifyFrameError maps a frame-package sentinel to the spec's ErrorKind
// taxonomy.
func classifyFrameError(err error) error {
	switch {
	case errors.Is(err, frame.ErrBadSyncCode):
		return newErr(ErrKindBadSyncCode, -1, err)
	case errors.Is(err, frame.ErrBadSubframeHeader), errors.Is(err, frame.ErrInvalidLPCPrec):
		return newErr(ErrKindBadSubframeHeader, -1, err)
	case errors.Is(err, frame.ErrBadResidual):
		return newErr(ErrKindBadResidual, -1, err)
	case errors.Is(err, frame.ErrReservedField), errors.Is(err, frame.ErrZeroSampleRate):
		return newErr(ErrKindBadMetadata, -1, err)
	default:
		return newErr(ErrKindBadSyncCode, -1, err)
	}
}
