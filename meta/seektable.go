package meta

import (
	"encoding/binary"
	"fmt"
	"io"
)

// placeholderSampleNum marks an unused SeekTable entry; it must be skipped by
// the seek engine rather than treated as a real seek point.
const placeholderSampleNum = 0xFFFFFFFFFFFFFFFF

// seekPointLength is the fixed on-disk size in bytes of one SeekPoint.
const seekPointLength = 18

// SeekPoint is a single entry in a SeekTable, locating a particular FLAC
// frame by its first PCM-frame (sample) index.
//
// ref: https://www.xiph.org/flac/format.html#seekpoint
type SeekPoint struct {
	// Sample number of the first sample in the target frame, or
	// placeholderSampleNum for a placeholder point, which must be ignored.
	SampleNum uint64
	// Offset in bytes from the first frame header to the target frame
	// header.
	Offset uint64
	// Number of samples in the target frame.
	NSamples uint16
}

// IsPlaceholder reports whether p is an unused placeholder entry.
func (p SeekPoint) IsPlaceholder() bool { return p.SampleNum == placeholderSampleNum }

// SeekTable is an optional metadata block listing seek points ordered by
// ascending sample number, used to speed up seeking without scanning the
// entire stream.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_seektable
type SeekTable struct {
	Points []SeekPoint
}

// parseSeekTable reads and parses the body of a SeekTable metadata block.
func (block *Block) parseSeekTable() error {
	if block.Length%seekPointLength != 0 {
		return fmt.Errorf("meta.parseSeekTable: invalid SeekTable block length; %d is not a multiple of %d", block.Length, seekPointLength)
	}
	n := int(block.Length / seekPointLength)
	st := &SeekTable{Points: make([]SeekPoint, n)}
	var buf [seekPointLength]byte
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(block.lr, buf[:]); err != nil {
			return unexpected(err)
		}
		st.Points[i] = SeekPoint{
			SampleNum: binary.BigEndian.Uint64(buf[0:8]),
			Offset:    binary.BigEndian.Uint64(buf[8:16]),
			NSamples:  binary.BigEndian.Uint16(buf[16:18]),
		}
	}
	block.Body = st
	return nil
}
