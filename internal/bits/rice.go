package bits

import "math/bits"

// ReadRice decodes one Rice-coded residual with parameter k, fusing the
// unary quotient scan and the k-bit remainder extraction so the hot path
// never leaves the L1 register except to refill it.
func (br *Reader) ReadRice(k uint) (int32, error) {
	var hi uint64
	for {
		if br.l1n > 0 {
			lz := uint(bits.LeadingZeros64(br.l1))
			if lz < br.l1n {
				br.takeL1(lz + 1)
				hi += uint64(lz)
				break
			}
			hi += uint64(br.l1n)
			br.l1, br.l1n = 0, 0
			br.releaseCRC()
		}
		if err := br.fillL1(); err != nil {
			return 0, err
		}
	}

	var lo uint64
	if k > 0 {
		var err error
		lo, err = br.readBits(k)
		if err != nil {
			return 0, err
		}
	}

	return decodeZigZag(hi, lo, k), nil
}

// ReadRiceSlow decodes a Rice residual via independent ReadUnary/Read calls.
// It is a correctness reference for ReadRice, not on the hot path.
func (br *Reader) ReadRiceSlow(k uint) (int32, error) {
	hi, err := br.ReadUnary()
	if err != nil {
		return 0, err
	}
	var lo uint64
	if k > 0 {
		lo, err = br.Read(k)
		if err != nil {
			return 0, err
		}
	}
	return decodeZigZag(hi, lo, k), nil
}

// decodeZigZag folds a Rice quotient/remainder pair back into a signed
// residual: the low bit is the sign, the rest is the magnitude.
func decodeZigZag(hi, lo uint64, k uint) int32 {
	folded := uint32(hi<<k | lo)
	return int32(folded>>1) ^ -int32(folded&1)
}
