package meta

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxVorbisCommentLength guards against a corrupt or adversarial declared
// length causing an unbounded allocation before any byte has been validated.
const maxVorbisCommentLength = 1 << 24

// VorbisComment holds block location and size only; per spec §1 non-goals,
// no semantic interpretation of the comment key/value pairs is performed.
// The vendor string and comment count are retained since they are read
// directly off the wire as part of locating the block, not interpreted.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_vorbis_comment
type VorbisComment struct {
	Vendor   string
	NComment uint32
}

func (block *Block) parseVorbisComment() error {
	if block.Length < 4 || block.Length > maxVorbisCommentLength {
		return ErrDeclaredBlockTooBig
	}
	vc := new(VorbisComment)

	var lenBuf [4]byte
	if _, err := io.ReadFull(block.lr, lenBuf[:]); err != nil {
		return unexpected(err)
	}
	vendorLen := binary.LittleEndian.Uint32(lenBuf[:])
	if int64(vendorLen) > block.Length {
		return fmt.Errorf("meta.parseVorbisComment: vendor length %d exceeds block length %d", vendorLen, block.Length)
	}
	vendor := make([]byte, vendorLen)
	if _, err := io.ReadFull(block.lr, vendor); err != nil {
		return unexpected(err)
	}
	vc.Vendor = string(vendor)

	if _, err := io.ReadFull(block.lr, lenBuf[:]); err != nil {
		return unexpected(err)
	}
	vc.NComment = binary.LittleEndian.Uint32(lenBuf[:])

	// Comment entries themselves are skipped; only their count and the
	// vendor string were needed to fully consume the block header.
	if _, err := io.Copy(io.Discard, block.lr); err != nil {
		return unexpected(err)
	}
	block.Body = vc
	return nil
}
