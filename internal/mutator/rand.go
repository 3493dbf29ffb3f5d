package mutator

import "math/bits"

// RandExp returns a non-negative integer k with probability 2^-(k+1): the
// count of leading zero bits in a freshly drawn 32-bit uniform value. This
// is what biases the corpus's mutation-round count toward small numbers of
// mutations per generated input.
func RandExp(r Rand) int {
	return bits.LeadingZeros32(r.Uint32())
}

// ChooseLen picks a mutation length biased toward small edits: 90% of the
// time within [1, min(8,n)], 9% of the time within [1, min(32,n)], and
// otherwise within [1, n].
func ChooseLen(r Rand, n int) int {
	x := r.Next(100)
	switch {
	case x < 90:
		return r.Next(min(8, n)) + 1
	case x < 99:
		return r.Next(min(32, n)) + 1
	default:
		return r.Next(n) + 1
	}
}
