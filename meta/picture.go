package meta

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PictureType enumerates the FLAC PICTURE block's picture-type field (ID3v2
// APIC numbering); its semantics are not interpreted beyond storing it.
type PictureType uint32

func (block *Block) parsePicture() error {
	pic := new(Picture)
	readUint32 := func() (uint32, error) {
		var buf [4]byte
		if _, err := io.ReadFull(block.lr, buf[:]); err != nil {
			return 0, err
		}
		return binary.BigEndian.Uint32(buf[:]), nil
	}
	readString := func() (string, error) {
		n, err := readUint32()
		if err != nil {
			return "", err
		}
		if n > maxVorbisCommentLength {
			return "", ErrDeclaredBlockTooBig
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(block.lr, buf); err != nil {
			return "", err
		}
		return string(buf), nil
	}

	typ, err := readUint32()
	if err != nil {
		return unexpected(err)
	}
	pic.Type = PictureType(typ)

	if pic.MIME, err = readString(); err != nil {
		return unexpected(err)
	}
	if pic.Desc, err = readString(); err != nil {
		return unexpected(err)
	}
	if pic.Width, err = readUint32(); err != nil {
		return unexpected(err)
	}
	if pic.Height, err = readUint32(); err != nil {
		return unexpected(err)
	}
	if pic.Depth, err = readUint32(); err != nil {
		return unexpected(err)
	}
	if pic.NPalColors, err = readUint32(); err != nil {
		return unexpected(err)
	}
	dataLen, err := readUint32()
	if err != nil {
		return unexpected(err)
	}
	pic.DataLength = dataLen

	// Picture data itself is not retained, only its size, per spec §1
	// ("only block location and size are recorded").
	if _, err := io.CopyN(io.Discard, block.lr, int64(dataLen)); err != nil {
		return unexpected(fmt.Errorf("meta.parsePicture: %w", err))
	}

	block.Body = pic
	return nil
}

// Picture records the location and descriptive fields of an embedded image,
// without retaining the raw image bytes.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_picture
type Picture struct {
	Type       PictureType
	MIME       string
	Desc       string
	Width      uint32
	Height     uint32
	Depth      uint32
	NPalColors uint32
	DataLength uint32
}
