package ogg

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
)

// encodePage builds one raw Ogg page from the given packet payloads. Every
// packet but the last is segment-terminated normally; if continuedTail is
// non-nil, the page ends mid-packet (its final segment has length 255 and no
// terminating short segment).
func encodePage(t *testing.T, serial, sequence uint32, isLast bool, packets [][]byte, continuedTail []byte) []byte {
	t.Helper()

	var segTable []byte
	var content bytes.Buffer
	for _, pkt := range packets {
		content.Write(pkt)
		n := len(pkt)
		for n >= 255 {
			segTable = append(segTable, 255)
			n -= 255
		}
		segTable = append(segTable, byte(n))
	}
	if continuedTail != nil {
		content.Write(continuedTail)
		n := len(continuedTail)
		for n > 0 {
			if n >= 255 {
				segTable = append(segTable, 255)
				n -= 255
			} else {
				// A continued page's tail must end on a full 255-byte
				// segment; callers pass tails that are multiples of 255.
				t.Fatalf("encodePage: continuedTail length %d not a multiple of 255", len(continuedTail))
			}
		}
	}
	if len(segTable) > 255 {
		t.Fatalf("encodePage: segment table too long for a single page: %d", len(segTable))
	}

	var flags uint8
	if isLast {
		flags |= flagLast
	}

	var buf bytes.Buffer
	buf.Write(capturePattern[:])
	buf.WriteByte(0) // version
	buf.WriteByte(flags)
	var granule [8]byte
	buf.Write(granule[:])
	var serialBuf, seqBuf, crcBuf [4]byte
	binary.LittleEndian.PutUint32(serialBuf[:], serial)
	buf.Write(serialBuf[:])
	binary.LittleEndian.PutUint32(seqBuf[:], sequence)
	buf.Write(seqBuf[:])
	buf.Write(crcBuf[:]) // checksum placeholder, zeroed
	buf.WriteByte(byte(len(segTable)))
	buf.Write(segTable)
	buf.Write(content.Bytes())

	raw := buf.Bytes()
	running := crcUpdate(0, raw)
	binary.LittleEndian.PutUint32(raw[22:26], running)
	return raw
}

func flacIDPacket(payload []byte) []byte {
	var hdr [9]byte
	hdr[0] = 0x7f
	copy(hdr[1:5], "FLAC")
	binary.BigEndian.PutUint16(hdr[5:7], 1) // version 1.0
	binary.BigEndian.PutUint16(hdr[7:9], 1) // 1 header packet to follow
	return append(hdr[:], payload...)
}

func TestNewDemuxerSinglePage(t *testing.T) {
	id := flacIDPacket([]byte("fLaC-signature-bytes"))
	other := []byte("second packet payload")
	raw := encodePage(t, 42, 0, true, [][]byte{id, other}, nil)

	d, err := NewDemuxer(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}

	got, err := io.ReadAll(d)
	if err != nil {
		t.Fatal(err)
	}
	want := "fLaC-signature-bytes" + "second packet payload"
	if string(got) != want {
		t.Fatalf("ReadAll = %q, want %q", got, want)
	}
}

func TestNewDemuxerRejectsNonFlacFirstPacket(t *testing.T) {
	raw := encodePage(t, 1, 0, true, [][]byte{[]byte("not a flac packet at all")}, nil)
	if _, err := NewDemuxer(bytes.NewReader(raw)); err != ErrNotFlac {
		t.Fatalf("NewDemuxer error = %v, want ErrNotFlac", err)
	}
}

func TestNewDemuxerRejectsBadCapturePattern(t *testing.T) {
	raw := encodePage(t, 1, 0, true, [][]byte{flacIDPacket(nil)}, nil)
	raw[0] = 'X'
	if _, err := NewDemuxer(bytes.NewReader(raw)); err == nil {
		t.Fatalf("NewDemuxer accepted a corrupted capture pattern")
	}
}

func TestNewDemuxerRejectsBadChecksum(t *testing.T) {
	raw := encodePage(t, 1, 0, true, [][]byte{flacIDPacket(nil)}, nil)
	raw[len(raw)-1] ^= 0xFF
	if _, err := NewDemuxer(bytes.NewReader(raw)); err == nil {
		t.Fatalf("NewDemuxer accepted a page with a corrupted checksum")
	}
}

func TestDemuxerReassemblesPacketAcrossPageBoundary(t *testing.T) {
	id := flacIDPacket([]byte("id"))
	tail := bytes.Repeat([]byte{0xAB}, 255) // a full 255-byte segment: continues onto the next page
	page1 := encodePage(t, 7, 0, false, [][]byte{id}, tail)

	rest := []byte{0xCD, 0xCD, 0xCD} // short final segment completes the packet
	page2 := encodeContinuationPage(t, 7, 1, true, rest)

	var stream bytes.Buffer
	stream.Write(page1)
	stream.Write(page2)

	d, err := NewDemuxer(bytes.NewReader(stream.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(d)
	if err != nil {
		t.Fatal(err)
	}
	want := append(append([]byte("id"), tail...), rest...)
	if !bytes.Equal(got, want) {
		t.Fatalf("reassembled packet length = %d, want %d", len(got), len(want))
	}
}

// encodeContinuationPage builds a page whose single segment (< 255 bytes)
// completes a packet begun on a previous page.
func encodeContinuationPage(t *testing.T, serial, sequence uint32, isLast bool, finalSegment []byte) []byte {
	t.Helper()
	if len(finalSegment) >= 255 {
		t.Fatalf("encodeContinuationPage: finalSegment must be < 255 bytes")
	}

	segTable := []byte{byte(len(finalSegment))}
	var flags uint8
	if isLast {
		flags |= flagLast
	}
	flags |= flagContinued

	var buf bytes.Buffer
	buf.Write(capturePattern[:])
	buf.WriteByte(0)
	buf.WriteByte(flags)
	var granule [8]byte
	buf.Write(granule[:])
	var serialBuf, seqBuf, crcBuf [4]byte
	binary.LittleEndian.PutUint32(serialBuf[:], serial)
	buf.Write(serialBuf[:])
	binary.LittleEndian.PutUint32(seqBuf[:], sequence)
	buf.Write(seqBuf[:])
	buf.Write(crcBuf[:])
	buf.WriteByte(byte(len(segTable)))
	buf.Write(segTable)
	buf.Write(finalSegment)

	raw := buf.Bytes()
	running := crcUpdate(0, raw)
	binary.LittleEndian.PutUint32(raw[22:26], running)
	return raw
}
