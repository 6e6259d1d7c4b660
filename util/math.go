package util

import "golang.org/x/exp/constraints"

// Min returns the smaller of a and b.
func Min[T constraints.Ordered](a T, b T) T {
	if a <= b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a T, b T) T {
	if a >= b {
		return a
	}
	return b
}

// CeilDiv divides n by d, rounding up. d must be positive.
func CeilDiv[T constraints.Integer](n T, d T) T {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

// Span returns the indices of the first and last block of size `block`
// touched by the byte range [offset, offset+length). The range must be
// non-empty.
func Span[T constraints.Integer](offset T, length T, block T) (first T, last T) {
	first = offset / block
	last = (offset + length - 1) / block
	return first, last
}
