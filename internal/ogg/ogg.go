// Package ogg implements the minimal "FLAC in Ogg" demultiplexing needed to
// strip Ogg page/packet framing from around a FLAC stream: page parsing,
// segment-table-driven packet splitting, and logical-stream selection by the
// first packet's "\x7fFLAC" identifier. Only a single logical stream is
// supported; if a file multiplexes several, the first one whose first packet
// identifies as FLAC is selected and all others are discarded unread.
package ogg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

var capturePattern = [4]byte{'O', 'g', 'g', 'S'}

const (
	flagContinued = 1 << 0
	flagFirst     = 1 << 1
	flagLast      = 1 << 2

	maxPageSize = 27 + 255 + 255*255
)

// ErrNotFlac reports that the Ogg stream's first packet does not identify as
// FLAC-in-Ogg.
var ErrNotFlac = errors.New("ogg: first packet is not a FLAC-in-Ogg identification packet")

var crcTable [256]uint32

func init() {
	for i := range crcTable {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = r<<1 ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		crcTable[i] = r
	}
}

func crcUpdate(crc uint32, data []byte) uint32 {
	for _, b := range data {
		crc = crc<<8 ^ crcTable[byte(crc>>24)^b]
	}
	return crc
}

type pageHeader struct {
	Version     uint8
	Flags       uint8
	Granule     int64
	Serial      uint32
	Sequence    uint32
	Checksum    uint32
	NumSegments uint8
}

type page struct {
	pageHeader
	packets       [][]byte
	continuedTail []byte // final packet, incomplete if the page ends mid-packet
}

func (p *page) isLast() bool { return p.Flags&flagLast != 0 }

// readPage reads one Ogg page from r, verifying the capture pattern, header
// layout and CRC-32 checksum.
func readPage(r io.Reader) (*page, error) {
	var sync [4]byte
	if _, err := io.ReadFull(r, sync[:]); err != nil {
		return nil, err
	}
	if sync != capturePattern {
		return nil, errors.New("ogg: missing capture pattern")
	}

	var hdrBuf [23]byte
	if _, err := io.ReadFull(r, hdrBuf[:]); err != nil {
		return nil, err
	}
	p := &page{}
	p.Version = hdrBuf[0]
	p.Flags = hdrBuf[1]
	p.Granule = int64(binary.LittleEndian.Uint64(hdrBuf[2:10]))
	p.Serial = binary.LittleEndian.Uint32(hdrBuf[10:14])
	p.Sequence = binary.LittleEndian.Uint32(hdrBuf[14:18])
	p.Checksum = binary.LittleEndian.Uint32(hdrBuf[18:22])
	p.NumSegments = hdrBuf[22]

	segTable := make([]byte, p.NumSegments)
	if _, err := io.ReadFull(r, segTable); err != nil {
		return nil, err
	}

	// Checksum covers the whole page with the checksum field itself zeroed.
	zeroed := append(append([]byte{}, sync[:]...), hdrBuf[:]...)
	zeroed[4+18], zeroed[4+19], zeroed[4+20], zeroed[4+21] = 0, 0, 0, 0
	running := crcUpdate(0, zeroed)
	running = crcUpdate(running, segTable)

	totalSize := 0
	for _, s := range segTable {
		totalSize += int(s)
	}
	content := make([]byte, totalSize)
	if totalSize > 0 {
		if _, err := io.ReadFull(r, content); err != nil {
			return nil, err
		}
	}
	running = crcUpdate(running, content)
	if running != p.Checksum {
		return nil, errors.New("ogg: page checksum mismatch")
	}

	offset := 0
	segSize := 0
	endsOnSegmentBoundary := true
	for _, s := range segTable {
		segSize += int(s)
		if s < 255 {
			p.packets = append(p.packets, content[offset:offset+segSize])
			offset += segSize
			segSize = 0
			endsOnSegmentBoundary = true
		} else {
			endsOnSegmentBoundary = false
		}
	}
	if !endsOnSegmentBoundary {
		p.continuedTail = content[offset : offset+segSize]
	}

	return p, nil
}

// Demuxer presents the concatenation of FLAC packet payloads from the
// selected Ogg logical stream as a single io.Reader, for the FLAC container
// parser and bit reader to consume exactly as they would a native FLAC
// stream's bytes.
type Demuxer struct {
	r      io.Reader
	serial uint32

	cur  *page
	idx  int
	rest []byte // an in-progress packet spanning a page boundary
	done bool

	pending []byte // bytes of the current packet not yet handed to Read
}

// NewDemuxer reads Ogg pages of r until one whose first packet identifies as
// FLAC-in-Ogg (ErrNotFlac if the input ends first), selects that page's
// logical stream, and returns a Demuxer positioned at the start of
// the embedded fLaC signature (i.e. past the Ogg mapping's 9-byte packet
// header: 0x7f, "FLAC", 2-byte version, 2-byte header-packet count).
func NewDemuxer(r io.Reader) (*Demuxer, error) {
	d := &Demuxer{r: r}
	var pg *page
	var first []byte
	for pg == nil {
		p, err := readPage(r)
		if err == io.EOF {
			err = ErrNotFlac
		}
		if err != nil {
			return nil, err
		}
		if len(p.packets) > 0 && len(p.packets[0]) >= 9 && p.packets[0][0] == 0x7f && bytes.Equal(p.packets[0][1:5], []byte("FLAC")) {
			pg, first = p, p.packets[0]
		}
	}
	d.serial = pg.Serial
	d.cur = pg
	d.idx = 1
	if pg.continuedTail != nil {
		d.rest = pg.continuedTail
	}
	if pg.isLast() {
		d.done = true
	}
	d.pending = first[9:]
	return d, nil
}

// nextPage reads pages until one belongs to the selected serial, discarding
// every page from any other logical stream.
func (d *Demuxer) nextPage() (*page, error) {
	for {
		pg, err := readPage(d.r)
		if err != nil {
			return nil, err
		}
		if pg.Serial == d.serial {
			return pg, nil
		}
	}
}

// nextPacket returns the next whole packet belonging to the selected serial.
// A packet that spans a page boundary (every segment of its last page full,
// i.e. a length-255 final segment) is reassembled transparently.
func (d *Demuxer) nextPacket() ([]byte, error) {
	for {
		if d.cur != nil && d.idx < len(d.cur.packets) {
			pkt := d.cur.packets[d.idx]
			d.idx++
			if d.idx == len(d.cur.packets) && d.rest != nil {
				pkt = append(append([]byte{}, pkt...), d.rest...)
				d.rest = nil
			}
			return pkt, nil
		}
		if d.done {
			return nil, io.EOF
		}
		pg, err := d.nextPage()
		if err != nil {
			return nil, err
		}
		if d.rest != nil && len(pg.packets) > 0 {
			pg.packets[0] = append(append([]byte{}, d.rest...), pg.packets[0]...)
			d.rest = nil
		} else if d.rest != nil {
			// The whole page continues the in-progress packet.
			d.rest = append(d.rest, pg.continuedTail...)
			if pg.isLast() {
				d.done = true
			}
			continue
		}
		d.cur = pg
		d.idx = 0
		d.rest = pg.continuedTail
		if pg.isLast() {
			d.done = true
		}
	}
}

// Read implements io.Reader over the concatenation of the selected stream's
// packet payloads.
func (d *Demuxer) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(d.pending) == 0 {
			pkt, err := d.nextPacket()
			if err != nil {
				if n > 0 {
					return n, nil
				}
				return 0, err
			}
			d.pending = pkt
		}
		c := copy(p[n:], d.pending)
		d.pending = d.pending[c:]
		n += c
	}
	return n, nil
}
