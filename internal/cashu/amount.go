package cashu

import "math/bits"

// Amount is an ecash denomination in the mint's base unit (sats unless the
// keyset says otherwise). Mints only carry keys for powers of two, so any
// amount moving through the protocol is a sum of Split results.
type Amount uint64

// Split decomposes the amount into power-of-two denominations, smallest first.
func (a Amount) Split() []Amount {
	if a == 0 {
		return nil
	}

	split := make([]Amount, 0, bits.OnesCount64(uint64(a)))
	for v := uint64(a); v != 0; v &= v - 1 {
		split = append(split, Amount(v&-v))
	}
	return split
}
