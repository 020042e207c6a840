package util

import "golang.org/x/exp/constraints"

// InsertAt inserts v into s at index i, shifting the tail right.
func InsertAt[T any](s []T, i int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// RemoveAt deletes the element at index i, preserving order.
func RemoveAt[T any](s []T, i int) []T {
	return append(s[:i], s[i+1:]...)
}

// Reverse reverses s in place.
func Reverse[T any](s []T) {
	for l, r := 0, len(s)-1; l < r; l, r = l+1, r-1 {
		s[l], s[r] = s[r], s[l]
	}
}

// RoundUp rounds n up to the nearest multiple of mult, generic over any
// integer type so both stack-size (int64) and bitmap-word (int) arithmetic
// share one implementation.
func RoundUp[T constraints.Integer](n, mult T) T {
	if n%mult == 0 {
		return n
	}
	return n + (mult - n%mult)
}
