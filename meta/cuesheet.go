package meta

import "io"

// CueSheet records only the first 128 bytes (the catalog number) of a cue
// sheet block; the rest, including track and index data, is skipped
// uninterpreted, as track and index semantics are out of scope per spec §1.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_cuesheet
type CueSheet struct {
	// MCN (Media Catalog Number) or ISRC, first 128 bytes of the block,
	// stored verbatim without interpretation.
	CatalogNum [128]byte
}

func (block *Block) parseCueSheet() error {
	cs := new(CueSheet)
	if block.Length >= int64(len(cs.CatalogNum)) {
		if _, err := io.ReadFull(block.lr, cs.CatalogNum[:]); err != nil {
			return unexpected(err)
		}
	}
	if _, err := io.Copy(io.Discard, block.lr); err != nil {
		return unexpected(err)
	}
	block.Body = cs
	return nil
}
