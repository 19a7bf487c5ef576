package frame

import (
	"errors"
	"fmt"

	"github.com/farcloser/goflac/internal/bits"
)

// SubframeKind identifies which predictor a subframe uses.
type SubframeKind uint8

const (
	SubframeConstant SubframeKind = iota
	SubframeVerbatim
	SubframeFixed
	SubframeLPC
)

// fixedCoeffs are the FLAC fixed predictor coefficients, indexed by order;
// the implicit quantization shift for a fixed predictor is always 0.
var fixedCoeffs = [5][]int32{
	0: {},
	1: {1},
	2: {2, -1},
	3: {3, -3, 1},
	4: {4, -6, 4, -1},
}

// Subframe holds one channel's decoded contribution to a frame, before
// inter-channel recomposition.
type Subframe struct {
	Kind       SubframeKind
	Order      int
	WastedBits uint8
	Precision  uint8 // LPC only
	Shift      int8  // LPC only; negative means left-shift
	Coeffs     []int32
	// Samples holds the fully reconstructed signed values at the subframe's
	// effective bit depth, scaled left by WastedBits; length equals the
	// frame's block size.
	Samples []int32
}

var (
	ErrBadSubframeHeader = errors.New("frame: bad subframe header")
	ErrInvalidLPCPrec    = errors.New("frame: invalid LPC precision code")
)

// decodeSubframe reads and decodes one channel's subframe. bps is the
// effective bits per sample for this channel, already adjusted by the
// caller for any side-channel extra bit.
func decodeSubframe(br *bits.Reader, blockSize int, bps uint8) (*Subframe, error) {
	zero, err := br.Read(1)
	if err != nil {
		return nil, err
	}
	if zero != 0 {
		return nil, fmt.Errorf("frame.decodeSubframe: %w: leading bit not zero", ErrBadSubframeHeader)
	}

	typeCode, err := br.Read(6)
	if err != nil {
		return nil, err
	}

	wastedFlag, err := br.Read(1)
	if err != nil {
		return nil, err
	}
	var wasted uint8
	if wastedFlag == 1 {
		n, err := br.ReadUnary()
		if err != nil {
			return nil, err
		}
		wasted = uint8(n) + 1
	}

	effectiveBPS := bps
	if wasted > 0 {
		if uint8(wasted) >= bps {
			return nil, fmt.Errorf("frame.decodeSubframe: %w: wasted bits %d >= bits per sample %d", ErrBadSubframeHeader, wasted, bps)
		}
		effectiveBPS = bps - wasted
	}

	sf := &Subframe{WastedBits: wasted, Samples: make([]int32, blockSize)}

	switch {
	case typeCode == 0:
		sf.Kind = SubframeConstant
		if err := decodeConstant(br, sf, effectiveBPS); err != nil {
			return nil, err
		}
	case typeCode == 1:
		sf.Kind = SubframeVerbatim
		if err := decodeVerbatim(br, sf, effectiveBPS); err != nil {
			return nil, err
		}
	case typeCode >= 8 && typeCode <= 12:
		order := int(typeCode - 8)
		sf.Kind = SubframeFixed
		sf.Order = order
		if err := decodeFixed(br, sf, order, effectiveBPS); err != nil {
			return nil, err
		}
	case typeCode >= 32 && typeCode <= 63:
		order := int(typeCode-31)
		sf.Kind = SubframeLPC
		sf.Order = order
		if err := decodeLPC(br, sf, order, effectiveBPS); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("frame.decodeSubframe: %w: reserved subframe type code %d", ErrBadSubframeHeader, typeCode)
	}

	if wasted > 0 {
		for i := range sf.Samples {
			sf.Samples[i] <<= wasted
		}
	}
	return sf, nil
}

func decodeConstant(br *bits.Reader, sf *Subframe, bps uint8) error {
	v, err := br.ReadInt(uint(bps))
	if err != nil {
		return err
	}
	for i := range sf.Samples {
		sf.Samples[i] = v
	}
	return nil
}

func decodeVerbatim(br *bits.Reader, sf *Subframe, bps uint8) error {
	for i := range sf.Samples {
		v, err := br.ReadInt(uint(bps))
		if err != nil {
			return err
		}
		sf.Samples[i] = v
	}
	return nil
}

func decodeFixed(br *bits.Reader, sf *Subframe, order int, bps uint8) error {
	if order > 4 {
		return fmt.Errorf("frame.decodeFixed: %w: order %d > 4", ErrBadSubframeHeader, order)
	}
	for i := 0; i < order; i++ {
		v, err := br.ReadInt(uint(bps))
		if err != nil {
			return err
		}
		sf.Samples[i] = v
	}
	return decodeResidual(br, sf.Samples, order, fixedCoeffs[order], 0)
}

func decodeLPC(br *bits.Reader, sf *Subframe, order int, bps uint8) error {
	for i := 0; i < order; i++ {
		v, err := br.ReadInt(uint(bps))
		if err != nil {
			return err
		}
		sf.Samples[i] = v
	}

	precCode, err := br.Read(4)
	if err != nil {
		return err
	}
	if precCode == 15 {
		return fmt.Errorf("frame.decodeLPC: %w: precision code 15", ErrInvalidLPCPrec)
	}
	precision := uint8(precCode) + 1
	sf.Precision = precision

	shiftRaw, err := br.Read(5)
	if err != nil {
		return err
	}
	shift := int8(bits.SignExtend32(shiftRaw, 5))
	sf.Shift = shift

	coeffs := make([]int32, order)
	for i := range coeffs {
		c, err := br.ReadInt(uint(precision))
		if err != nil {
			return err
		}
		coeffs[i] = c
	}
	sf.Coeffs = coeffs

	return decodeResidual(br, sf.Samples, order, coeffs, int(shift))
}
