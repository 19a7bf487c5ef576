// Package flac provides a streaming, seekable decoder for the Free Lossless
// Audio Codec (FLAC), supporting both native FLAC framing and FLAC-in-Ogg
// encapsulation, operating over any io.Reader (optionally io.ReadSeeker) or
// over the source.Source capability directly.
//
// A FLAC stream starts with a 32-bit signature ("fLaC"), followed by one or
// more metadata blocks, then one or more audio frames. The first metadata
// block (StreamInfo) describes the basic properties of the stream and is the
// only mandatory block.
package flac

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/farcloser/goflac/frame"
	"github.com/farcloser/goflac/internal/bits"
	"github.com/farcloser/goflac/internal/bufseekio"
	"github.com/farcloser/goflac/internal/ogg"
	"github.com/farcloser/goflac/meta"
	"github.com/farcloser/goflac/source"
)

// flacSignature marks the beginning of a native FLAC stream.
var flacSignature = []byte("fLaC")

// containerKind distinguishes native FLAC framing from FLAC-in-Ogg framing;
// only brute-force seeking is required to be supported for the latter.
type containerKind uint8

const (
	containerNative containerKind = iota
	containerOgg
)

// A Stream provides access to the metadata blocks and audio frames of a FLAC
// stream.
type Stream struct {
	// Info describes the basic properties of the audio stream.
	Info *meta.StreamInfo
	// Blocks holds every non-StreamInfo metadata block encountered during
	// open, in stream order.
	Blocks []*meta.Block

	opts      DecodeOptions
	container containerKind

	seekTable *meta.SeekTable
	dataStart int64

	sampleCursor uint64 // next PCM-frame index the caller will read

	r      io.Reader
	seeker io.Seeker
	// rawRS is the original seekable source, before any Ogg demultiplexing,
	// kept so Ogg seeking can restart the demuxer from byte 0; nil when the
	// caller supplied a non-seekable io.Reader.
	rawRS  io.ReadSeeker
	closer io.Closer
	br     *bits.Reader

	cur    *frame.Frame
	curPos int
}

// Open opens the named FLAC file and returns a seekable Stream. The Close
// method must be called when finished using it.
func Open(path string, opts ...DecodeOptions) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := NewSeek(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// New creates a Stream over r. If r implements io.Seeker, New behaves as
// NewSeek. Otherwise seeking is disabled; streaming decode remains available,
// and metadata-block offsets are still recorded by counting the bytes read.
func New(r io.Reader, opts ...DecodeOptions) (*Stream, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return NewSeek(rs, opts...)
	}
	o := resolveOptions(opts)
	br := bufio.NewReader(r)
	s := &Stream{r: br, opts: o}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSeek creates a Stream over rs with seeking enabled via a buffered
// wrapper. An in-memory reader (bytes.Reader) avoids the extra buffering
// layer's benefit being wasted on an already-fast source, but works fine
// either way.
func NewSeek(rs io.ReadSeeker, opts ...DecodeOptions) (*Stream, error) {
	o := resolveOptions(opts)
	bsr := bufseekio.NewReadSeeker(rs)
	s := &Stream{r: bsr, seeker: bsr, rawRS: bsr, opts: o}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenSource creates a seekable Stream over the caller-supplied byte-source
// capability (source.Source), adapting it to io.ReadSeeker internally. This
// is the entry point for callers embedding the decoder behind a transport
// that doesn't naturally produce an io.ReadSeeker.
func OpenSource(src source.Source, opts ...DecodeOptions) (*Stream, error) {
	return NewSeek(source.ReadSeeker(src), opts...)
}

// Memory creates a Stream over an in-memory byte slice, with seeking enabled.
// The slice is held by reference.
func Memory(data []byte, opts ...DecodeOptions) (*Stream, error) {
	return NewSeek(bytes.NewReader(data), opts...)
}

func resolveOptions(opts []DecodeOptions) DecodeOptions {
	if len(opts) > 0 {
		return opts[0]
	}
	return DefaultDecodeOptions()
}

// Close closes the stream, releasing any resources opened on the caller's
// behalf (e.g. by Open).
func (s *Stream) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// open detects the container, reads the signature and StreamInfo, and walks
// the remaining metadata chain.
func (s *Stream) open() error {
	var sig [4]byte
	if _, err := io.ReadFull(s.r, sig[:]); err != nil {
		return newErr(ErrKindNotAFlacStream, -1, err)
	}

	switch {
	case bytes.Equal(sig[:], flacSignature):
		s.container = containerNative
		if err := s.parseMetadata(); err != nil {
			return err
		}
	case sig[0] == 'O' && sig[1] == 'g' && sig[2] == 'g' && sig[3] == 'S':
		s.container = containerOgg
		return s.openOgg(sig[:])
	default:
		return newErr(ErrKindNotAFlacStream, 0, fmt.Errorf("flac.open: expected %q, got %q", flacSignature, sig))
	}
	return nil
}

// openOgg re-reads the page starting with the 4 bytes already consumed by
// Stream.open's signature probe, then demultiplexes the FLAC logical stream
// out of the Ogg container.
func (s *Stream) openOgg(consumed []byte) error {
	demux, err := ogg.NewDemuxer(io.MultiReader(bytes.NewReader(consumed), s.r))
	if err != nil {
		return newErr(ErrKindUnsupported, -1, fmt.Errorf("flac.openOgg: %w", err))
	}
	s.r = demux
	s.seeker = nil // only brute-force seeking is supported over Ogg, per spec §4.9/§4.10

	var sig [4]byte
	if _, err := io.ReadFull(s.r, sig[:]); err != nil {
		return newErr(ErrKindNotAFlacStream, -1, err)
	}
	if !bytes.Equal(sig[:], flacSignature) {
		return newErr(ErrKindNotAFlacStream, -1, fmt.Errorf("flac.openOgg: expected %q after Ogg FLAC identification packet, got %q", flacSignature, sig))
	}
	return s.parseMetadata()
}

// parseMetadata reads the StreamInfo block (which must come first) and then
// every remaining metadata block until the "last" flag is set, recording
// type/offset/size for each and invoking DecodeOptions.OnMetadata.
func (s *Stream) parseMetadata() error {
	var consumed int64 = 4 // the 4-byte signature already read

	block, err := meta.Parse(s.r)
	if err != nil {
		return newErr(ErrKindBadMetadata, consumed, err)
	}
	consumed += 4 + block.Length
	si, ok := block.Body.(*meta.StreamInfo)
	if !ok {
		return newErr(ErrKindBadMetadata, consumed, fmt.Errorf("flac.parseMetadata: first metadata block must be StreamInfo, got %v", block.Type))
	}
	s.Info = si

	for !block.IsLast {
		offset := consumed
		block, err = meta.New(s.r)
		if err != nil {
			return newErr(ErrKindBadMetadata, consumed, err)
		}
		block.Offset = offset + 4

		if err := block.Parse(); err != nil && !errors.Is(err, meta.ErrReservedType) {
			return newErr(ErrKindBadMetadata, block.Offset, err)
		}

		if block.Type == meta.TypeSeekTable && s.seekTable == nil {
			s.seekTable = block.Body.(*meta.SeekTable)
		}

		if s.opts.OnMetadata != nil {
			s.invokeMetadataCallback(block)
		}

		if err := block.Skip(); err != nil {
			return newErr(ErrKindBadMetadata, block.Offset, err)
		}
		s.Blocks = append(s.Blocks, block)
		consumed += 4 + block.Length
	}

	if s.seeker != nil {
		pos, err := s.seeker.Seek(0, io.SeekCurrent)
		if err == nil {
			s.dataStart = pos
		} else {
			s.dataStart = consumed
		}
	} else {
		s.dataStart = consumed
	}

	s.br = bits.NewReader(s.r)
	return nil
}

// invokeMetadataCallback reports a block's location and size to
// DecodeOptions.OnMetadata. The payload parameter is always nil: block.Parse
// above has already consumed the body into typed fields rather than a raw
// buffer, so there is nothing left to hand back for the small-block case;
// callers that need the raw bytes of a specific block should reopen the
// stream with a seekable source and read block.Offset/block.Length directly.
func (s *Stream) invokeMetadataCallback(block *meta.Block) {
	s.opts.OnMetadata(MetaHeader{Type: block.Type.String(), Length: block.Length, IsLast: block.IsLast}, block.Offset, nil)
}
