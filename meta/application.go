package meta

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Application is a metadata block reserved for third-party application
// specific data, identified by a 4-byte registered ID.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_application
type Application struct {
	// Registered application ID.
	ID uint32
	// Application specific data, or nil if Data would exceed a sane size; see
	// Block.Offset/Block.Length to locate it in the stream instead.
	Data []byte
}

// maxApplicationData caps how much application payload this package buffers
// in memory; only location and size need to be recorded per spec §4.3.
const maxApplicationData = 1 << 20

func (block *Block) parseApplication() error {
	if block.Length < 4 {
		return fmt.Errorf("meta.parseApplication: invalid Application block length; got %d, want >= 4", block.Length)
	}
	var idBuf [4]byte
	if _, err := io.ReadFull(block.lr, idBuf[:]); err != nil {
		return unexpected(err)
	}
	app := &Application{ID: binary.BigEndian.Uint32(idBuf[:])}

	dataLen := block.Length - 4
	if dataLen > 0 && dataLen <= maxApplicationData {
		app.Data = make([]byte, dataLen)
		if _, err := io.ReadFull(block.lr, app.Data); err != nil {
			return unexpected(err)
		}
	} else if dataLen > 0 {
		if _, err := io.CopyN(io.Discard, block.lr, dataLen); err != nil {
			return unexpected(err)
		}
	}
	block.Body = app
	return nil
}

// verifyPadding discards the contents of a Padding block; padding carries no
// semantic payload.
func (block *Block) verifyPadding() error {
	_, err := io.Copy(io.Discard, block.lr)
	return unexpected(err)
}
