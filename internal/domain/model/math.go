package model

import "math/bits"

// MulDiv returns floor(a*b/d) using a 128-bit intermediate. It returns 0 when d
// is zero and saturates when the quotient does not fit in 64 bits.
func MulDiv(a, b, d uint64) uint64 {
	if d == 0 {
		return 0
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return ^uint64(0)
	}
	q, _ := bits.Div64(hi, lo, d)
	return q
}

// CheckedAdd returns a+b and false on overflow.
func CheckedAdd(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}
