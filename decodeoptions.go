package flac

// SeekStrategy is a bitmask selecting which of the three seek strategies
// (§4.10) a Stream may use, in priority order: SEEKTABLE, binary search,
// brute force. The test harness profiles each independently, so any subset
// may be disabled.
type SeekStrategy uint8

const (
	// SeekViaSeekTable consults the stream's SEEKTABLE metadata block, if
	// present.
	SeekViaSeekTable SeekStrategy = 1 << iota
	// SeekViaBinarySearch bisects by byte offset, scanning for frame sync
	// codes. Requires a seekable source and a known total sample count.
	SeekViaBinarySearch
	// SeekViaBruteForce scans frame headers sequentially from the start of
	// the audio data.
	SeekViaBruteForce

	// SeekStrategyAll enables every strategy, in priority order.
	SeekStrategyAll = SeekViaSeekTable | SeekViaBinarySearch | SeekViaBruteForce
)

// defaultSeekTableSize mirrors the teacher's own constant: the most seek
// points an auto-built seek table gets when the stream carries none.
const defaultSeekTableSize = 100

// DecodeOptions configures optional decoder behavior. The zero value is not
// directly usable; construct via DefaultDecodeOptions and override fields.
type DecodeOptions struct {
	// ValidateCRC enables comparing the per-frame CRC-8 header checksum and
	// CRC-16 frame checksum against the stream's stored values, failing the
	// read with a DecodeError if they mismatch. Off by default, per the
	// spec's integrity-checking non-goal; the checksums are still computed
	// either way; this only gates whether they're compared.
	ValidateCRC bool
	// SeekStrategies selects which seek strategies Seek may try, in
	// priority order. Defaults to SeekStrategyAll.
	SeekStrategies SeekStrategy
	// SeekTableSize bounds how many points an auto-built seek table gets
	// when the stream carries no SEEKTABLE block and seek-table seeking is
	// enabled. Zero disables auto-building.
	SeekTableSize int
	// OnMetadata, if non-nil, is invoked once per non-StreamInfo metadata
	// block encountered during open, after StreamInfo has been parsed. The
	// payload argument is always nil, whatever the block's size: the block
	// body has already been consumed by the metadata parser.
	OnMetadata MetadataFunc
	// MaxMetadataPayload defaults to 64KiB. The decoder does not consult it;
	// OnMetadata receives a nil payload for every block.
	MaxMetadataPayload int64
}

// MetadataFunc is the outbound metadata callback described in the spec's
// external interfaces: invoked once per non-StreamInfo metadata block with
// its header and absolute byte offset. The payload parameter is always nil.
type MetadataFunc func(hdr MetaHeader, offset int64, payload []byte)

// MetaHeader mirrors meta.Header to avoid making callers import the meta
// package just to receive this callback's type.
type MetaHeader struct {
	Type   string
	Length int64
	IsLast bool
}

// DefaultDecodeOptions returns the zero-value-safe defaults: CRC validation
// off, every seek strategy enabled, and the teacher's default auto seek
// table size.
func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{
		SeekStrategies:     SeekStrategyAll,
		SeekTableSize:      defaultSeekTableSize,
		MaxMetadataPayload: 64 << 10,
	}
}
