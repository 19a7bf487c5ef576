// Package meta implements access to FLAC metadata blocks.
//
// FLAC metadata is stored in blocks; each block contains a header followed by
// a body. The block header describes the type of the block body, its length
// in bytes, and specifies if the block was the last metadata block in a FLAC
// stream. The contents of the block body depends on the type specified in the
// block header.
//
//	[1]: https://www.xiph.org/flac/format.html#format_overview
package meta

import (
	"errors"
	"io"
)

// A Block contains the header and body of a metadata block.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block
type Block struct {
	// Metadata block header.
	Header
	// Metadata block body of type *StreamInfo, *Application, ... etc. Body is
	// initially nil, and gets populated by a call to Block.Parse.
	Body interface{}
	// Absolute byte offset of the block's payload (after the 4-byte block
	// header). New leaves it zero; the flac package's Stream sets it for each
	// non-StreamInfo block it walks while opening a stream.
	Offset int64
	// Underlying io.Reader, limited to the length of the block body.
	lr io.Reader
}

// New creates a new Block for accessing the metadata of r. It reads and
// parses a metadata block header.
//
// Call Block.Parse to parse the metadata block body, and call Block.Skip to
// ignore it.
func New(r io.Reader) (block *Block, err error) {
	block = new(Block)
	if err = block.parseHeader(r); err != nil {
		return block, err
	}
	block.lr = io.LimitReader(r, block.Length)
	return block, nil
}

// Parse reads and parses the header and body of a metadata block. Use New for
// additional granularity.
func Parse(r io.Reader) (block *Block, err error) {
	block, err = New(r)
	if err != nil {
		return block, err
	}
	if err = block.Parse(); err != nil {
		return block, err
	}
	return block, nil
}

// Errors returned by Parse.
var (
	ErrReservedType        = errors.New("meta.Block.Parse: reserved block type")
	ErrInvalidType         = errors.New("meta.Block.Parse: invalid block type")
	ErrDeclaredBlockTooBig = errors.New("meta.Block.Parse: declared block size is too big to allocate")
)

// parsers maps each known block type to its body parser. A type absent from
// this map carries no parser: Parse falls back to classifying it as reserved
// or invalid.
var parsers = map[Type]func(*Block) error{
	TypeStreamInfo:    (*Block).parseStreamInfo,
	TypePadding:       (*Block).verifyPadding,
	TypeApplication:   (*Block).parseApplication,
	TypeSeekTable:     (*Block).parseSeekTable,
	TypeVorbisComment: (*Block).parseVorbisComment,
	TypeCueSheet:      (*Block).parseCueSheet,
	TypePicture:       (*Block).parsePicture,
}

// lossyTypes holds the block types whose body parser records only location,
// size, and a handful of scalar fields, discarding the rest of the payload;
// see VorbisComment, CueSheet and Picture.
var lossyTypes = map[Type]bool{
	TypeVorbisComment: true,
	TypeCueSheet:      true,
	TypePicture:       true,
}

// Lossy reports whether t's body parser discards most of the block payload
// rather than retaining it in full.
func (t Type) Lossy() bool { return lossyTypes[t] }

// Parse reads and parses the metadata block body.
func (block *Block) Parse() error {
	parse, ok := parsers[block.Type]
	if !ok {
		if block.Type >= 7 && block.Type <= 126 {
			return ErrReservedType
		}
		return ErrInvalidType
	}
	return parse(block)
}

// Skip ignores the contents of the metadata block body.
func (block *Block) Skip() error {
	if sr, ok := block.lr.(io.Seeker); ok {
		_, err := sr.Seek(0, io.SeekEnd)
		return err
	}
	_, err := io.Copy(io.Discard, block.lr)
	return err
}

// A Header contains information about the type and length of a metadata
// block.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_header
type Header struct {
	// Metadata block body type.
	Type Type
	// Length of body data in bytes.
	Length int64
	// IsLast specifies if the block is the last metadata block.
	IsLast bool
}

// parseHeader reads and parses the header of a metadata block: 1 bit
// IsLast, 7 bits Type, 24 bits Length.
func (block *Block) parseHeader(r io.Reader) error {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		// This is the only place a metadata block may return io.EOF, which
		// signals a graceful end of a FLAC stream from a metadata point of
		// view. Valid FLAC streams always contain at least one audio frame
		// after the last metadata block, so an io.EOF here is handled by the
		// flac package as an error, not a graceful end of stream.
		if err == io.ErrUnexpectedEOF {
			return io.EOF
		}
		return err
	}

	block.IsLast = buf[0]&0x80 != 0
	block.Type = Type(buf[0] & 0x7F)
	block.Length = int64(buf[1])<<16 | int64(buf[2])<<8 | int64(buf[3])

	return nil
}

// Type represents the type of a metadata block body.
type Type uint8

// Metadata block body types.
const (
	TypeStreamInfo    Type = 0
	TypePadding       Type = 1
	TypeApplication   Type = 2
	TypeSeekTable     Type = 3
	TypeVorbisComment Type = 4
	TypeCueSheet      Type = 5
	TypePicture       Type = 6
)

func (t Type) String() string {
	switch t {
	case TypeStreamInfo:
		return "stream info"
	case TypePadding:
		return "padding"
	case TypeApplication:
		return "application"
	case TypeSeekTable:
		return "seek table"
	case TypeVorbisComment:
		return "vorbis comment"
	case TypeCueSheet:
		return "cue sheet"
	case TypePicture:
		return "picture"
	default:
		return "<unknown block type>"
	}
}

// unexpected returns io.ErrUnexpectedEOF if err is io.EOF, and returns err
// otherwise.
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
