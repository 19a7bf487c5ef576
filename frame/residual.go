package frame

import (
	"errors"
	"fmt"

	"github.com/farcloser/goflac/internal/bits"
)

// ErrBadResidual reports a malformed partitioned-Rice residual: an unknown
// coding method, a partition order incompatible with the block size, or an
// escape-coded partition with an unencoded width wider than 32 bits.
var ErrBadResidual = errors.New("frame: bad residual")

// predictSample computes the predicted value for workspace index i, given
// that samples[:i] already holds reconstructed values. It is switched on
// order rather than taking the coefficients through a captured closure: a
// closure is an indirect call through a function value on every sample, and
// the predictor MAC sits in the same per-sample hot loop as the bit reader's
// fused unary/Rice decode, so it must stay a direct, specializable call the
// same way that fusion does. Orders 1-4 (every FIXED predictor, and the most
// common LPC orders) get an unrolled dot product; everything above falls
// through to a plain accumulation loop.
func predictSample(samples []int32, i, order int, coeffs []int32, shift int) int32 {
	switch order {
	case 0:
		return 0
	case 1:
		return int32(shiftSum(int64(coeffs[0])*int64(samples[i-1]), shift))
	case 2:
		return int32(shiftSum(
			int64(coeffs[0])*int64(samples[i-1])+
				int64(coeffs[1])*int64(samples[i-2]), shift))
	case 3:
		return int32(shiftSum(
			int64(coeffs[0])*int64(samples[i-1])+
				int64(coeffs[1])*int64(samples[i-2])+
				int64(coeffs[2])*int64(samples[i-3]), shift))
	case 4:
		return int32(shiftSum(
			int64(coeffs[0])*int64(samples[i-1])+
				int64(coeffs[1])*int64(samples[i-2])+
				int64(coeffs[2])*int64(samples[i-3])+
				int64(coeffs[3])*int64(samples[i-4]), shift))
	default:
		var sum int64
		for j, c := range coeffs {
			sum += int64(c) * int64(samples[i-1-j])
		}
		return int32(shiftSum(sum, shift))
	}
}

// shiftSum applies a predictor's quantization shift to an accumulated sum. A
// negative shift is legal per the FLAC spec (rare in practice) and means the
// sum is shifted left instead of right.
func shiftSum(sum int64, shift int) int64 {
	if shift < 0 {
		return sum << uint(-shift)
	}
	return sum >> uint(shift)
}

// decodeResidual reads a partitioned-Rice-coded residual and reconstructs
// samples[order:] in place, fusing the unary/Rice decode (via ReadRice) with
// the predictor MAC (via predictSample) so the hot path makes one pass over
// the partition without ever dispatching through a function value.
func decodeResidual(br *bits.Reader, samples []int32, order int, coeffs []int32, shift int) error {
	blockSize := len(samples)

	method, err := br.Read(2)
	if err != nil {
		return err
	}
	if method > 1 {
		return fmt.Errorf("frame.decodeResidual: %w: coding method %d", ErrBadResidual, method)
	}
	paramBits := uint(4)
	escape := uint64(15)
	if method == 1 {
		paramBits = 5
		escape = 31
	}

	partOrderBits, err := br.Read(4)
	if err != nil {
		return err
	}
	partOrder := int(partOrderBits)
	partCount := 1 << partOrder
	if blockSize%partCount != 0 {
		return fmt.Errorf("frame.decodeResidual: %w: block size %d not a multiple of %d partitions", ErrBadResidual, blockSize, partCount)
	}
	samplesPerPart := blockSize / partCount
	if samplesPerPart < order {
		return fmt.Errorf("frame.decodeResidual: %w: partition order %d incompatible with predictor order %d", ErrBadResidual, partOrder, order)
	}

	idx := order
	for p := 0; p < partCount; p++ {
		cnt := samplesPerPart
		if p == 0 {
			cnt = samplesPerPart - order
		}

		param, err := br.Read(paramBits)
		if err != nil {
			return err
		}
		if param == escape {
			rawBits, err := br.Read(5)
			if err != nil {
				return err
			}
			if rawBits > 32 {
				return fmt.Errorf("frame.decodeResidual: %w: escape width %d > 32", ErrBadResidual, rawBits)
			}
			for j := 0; j < cnt; j++ {
				var residual int32
				if rawBits > 0 {
					residual, err = br.ReadInt(uint(rawBits))
					if err != nil {
						return err
					}
				}
				samples[idx] = predictSample(samples, idx, order, coeffs, shift) + residual
				idx++
			}
			continue
		}

		for j := 0; j < cnt; j++ {
			residual, err := br.ReadRice(uint(param))
			if err != nil {
				return err
			}
			samples[idx] = predictSample(samples, idx, order, coeffs, shift) + residual
			idx++
		}
	}
	return nil
}
