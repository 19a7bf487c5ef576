package flac

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/farcloser/goflac/meta"
)

// buildSeekableFlacFile assembles a stream of len(values) fixed 256-sample
// CONSTANT frames, preceded by a SEEKTABLE block with one entry pointing
// directly at seekTableFrameIndex.
func buildSeekableFlacFile(t *testing.T, values []int16, seekTableFrameIndex int) []byte {
	t.Helper()
	const sampleRate = 44100
	const bps = 16

	frames := make([][]byte, len(values))
	for i, v := range values {
		frames[i] = buildConstantMonoFrame(t, uint8(i), v, sampleRate, bps)
	}
	frameLen := len(frames[0])

	var seekBody bytes.Buffer
	var entry [18]byte
	binary.BigEndian.PutUint64(entry[0:8], uint64(seekTableFrameIndex)*testBlockSize)
	binary.BigEndian.PutUint64(entry[8:16], uint64(seekTableFrameIndex*frameLen))
	binary.BigEndian.PutUint16(entry[16:18], testBlockSize)
	seekBody.Write(entry[:])

	var out bytes.Buffer
	out.WriteString("fLaC")
	si := streamInfoBody(sampleRate, 1, bps, uint64(len(values))*testBlockSize)
	out.Write(blockHeaderBytes(false, meta.TypeStreamInfo, len(si)))
	out.Write(si)
	out.Write(blockHeaderBytes(true, meta.TypeSeekTable, seekBody.Len()))
	out.Write(seekBody.Bytes())
	for _, f := range frames {
		out.Write(f)
	}
	return out.Bytes()
}

func openForSeekTest(t *testing.T, values []int16, seekTableFrameIndex int, strategy SeekStrategy) *Stream {
	t.Helper()
	raw := buildSeekableFlacFile(t, values, seekTableFrameIndex)
	opts := DefaultDecodeOptions()
	opts.SeekStrategies = strategy
	s, err := Memory(raw, opts)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func readOneSample(t *testing.T, s *Stream) int16 {
	t.Helper()
	buf := make([]int16, 1)
	if _, err := s.ReadS16(buf); err != nil {
		t.Fatal(err)
	}
	return buf[0]
}

func TestSeekViaSeekTableExactMatch(t *testing.T) {
	values := []int16{10, 20, 30, 40}
	s := openForSeekTest(t, values, 2, SeekViaSeekTable)
	defer s.Close()

	pos, err := s.Seek(2 * testBlockSize)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 2*testBlockSize {
		t.Fatalf("Seek returned %d, want %d", pos, 2*testBlockSize)
	}
	if got := readOneSample(t, s); got != 30 {
		t.Fatalf("sample after seek = %d, want 30", got)
	}
}

func TestSeekViaBinarySearch(t *testing.T) {
	values := []int16{10, 20, 30, 40}
	s := openForSeekTest(t, values, 0, SeekViaBinarySearch)
	defer s.Close()

	target := uint64(testBlockSize + 44) // inside frame 1 (samples 256-511)
	pos, err := s.Seek(target)
	if err != nil {
		t.Fatal(err)
	}
	if pos != testBlockSize {
		t.Fatalf("Seek returned %d, want %d", pos, testBlockSize)
	}
	if got := readOneSample(t, s); got != 20 {
		t.Fatalf("sample after seek = %d, want 20", got)
	}
}

func TestSeekViaBruteForce(t *testing.T) {
	values := []int16{10, 20, 30, 40}
	s := openForSeekTest(t, values, 0, SeekViaBruteForce)
	defer s.Close()

	target := uint64(3 * testBlockSize)
	pos, err := s.Seek(target)
	if err != nil {
		t.Fatal(err)
	}
	if pos != target {
		t.Fatalf("Seek returned %d, want %d", pos, target)
	}
	if got := readOneSample(t, s); got != 40 {
		t.Fatalf("sample after seek = %d, want 40", got)
	}
}

func TestSeekRejectsTargetBeyondStream(t *testing.T) {
	values := []int16{10, 20}
	s := openForSeekTest(t, values, 0, SeekStrategyAll)
	defer s.Close()

	if _, err := s.Seek(2 * testBlockSize); err == nil {
		t.Fatalf("Seek accepted a target beyond the stream's total sample count")
	}
}

func TestSeekViaSeekTableAutoBuildsWhenMissing(t *testing.T) {
	// No SEEKTABLE block at all: seekViaSeekTable must synthesize one by
	// scanning the stream once, per DecodeOptions.SeekTableSize.
	raw := buildMinimalFlacFile(t, []int16{10, 20, 30, 40}, false)
	opts := DefaultDecodeOptions()
	opts.SeekStrategies = SeekViaSeekTable
	s, err := Memory(raw, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if s.seekTable != nil {
		t.Fatalf("seekTable is already populated before any Seek call")
	}

	target := uint64(2 * testBlockSize)
	pos, err := s.Seek(target)
	if err != nil {
		t.Fatal(err)
	}
	if pos != target {
		t.Fatalf("Seek returned %d, want %d", pos, target)
	}
	if got := readOneSample(t, s); got != 30 {
		t.Fatalf("sample after seek = %d, want 30", got)
	}
	if s.seekTable == nil || len(s.seekTable.Points) != 4 {
		t.Fatalf("auto-built seek table has %v points, want 4", s.seekTable)
	}
}

func TestSeekTableScansForwardFromEarlierPoint(t *testing.T) {
	// SEEKTABLE only covers frame 0; the seek-table strategy must decode
	// forward from that point to reach frame 3.
	values := []int16{10, 20, 30, 40}
	s := openForSeekTest(t, values, 0, SeekViaSeekTable|SeekViaBinarySearch)
	defer s.Close()

	target := uint64(3 * testBlockSize)
	pos, err := s.Seek(target)
	if err != nil {
		t.Fatal(err)
	}
	if pos != target {
		t.Fatalf("Seek returned %d, want %d", pos, target)
	}
	if got := readOneSample(t, s); got != 40 {
		t.Fatalf("sample after seek = %d, want 40", got)
	}
}
