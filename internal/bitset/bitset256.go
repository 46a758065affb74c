// Copyright (c) 2025 namachan10777
// SPDX-License-Identifier: MIT

// Package bitset implements a fixed-size 256 bit set, used to represent
// which of the 256 possible byte values label an edge out of a trie row.
//
// Studied github.com/bits-and-blooms/bitset inside out and rewrote the
// parts needed for a dense, cache-line sized row mask from scratch.
package bitset

import "math/bits"

// Set256 represents a fixed size bitset from [0..255], one bit per
// possible byte value.
type Set256 [4]uint64

// MustSet sets the bit, it panics if bit is > 255 by intention!
func (b *Set256) MustSet(bit uint) {
	b[bit>>6] |= 1 << (bit & 63)
}

// Test reports whether the bit is set.
func (b *Set256) Test(bit uint) bool {
	if x := bit >> 6; x < 4 {
		return b[x&3]&(1<<(bit&63)) != 0 // [x&3] is bounds check elimination (BCE)
	}
	return false
}

// Size is the number of set bits (popcount).
func (b *Set256) Size() int {
	return bits.OnesCount64(b[0]) + bits.OnesCount64(b[1]) +
		bits.OnesCount64(b[2]) + bits.OnesCount64(b[3])
}
