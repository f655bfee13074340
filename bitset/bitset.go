// Package bitset implements the fixed-capacity bit array the block
// allocator and every fixed-capacity pool are built on: "allocate N
// free bits, all-or-nothing" and "free N bits by index".
package bitset

import "math/bits"

const wordBits = 64

// Bitset is a fixed-size array of N bits packed into 64-bit words.
type Bitset struct {
	words []uint64
	n     int
}

// New creates a Bitset of n bits, all initially clear (free).
func New(n int) *Bitset {
	return &Bitset{
		words: make([]uint64, (n+wordBits-1)/wordBits),
		n:     n,
	}
}

// Len returns the total number of bits.
func (b *Bitset) Len() int {
	return b.n
}

// Test reports whether bit i is set.
func (b *Bitset) Test(i int) bool {
	return b.words[i/wordBits]&(uint64(1)<<uint(i%wordBits)) != 0
}

// Count returns the number of set bits, via the hardware popcount
// primitive math/bits.OnesCount64 dispatches to where available.
func (b *Bitset) Count() int {
	c := 0
	for _, w := range b.words {
		c += bits.OnesCount64(w)
	}
	return c
}

// Allocate scans for k zero bits and, if at least k exist, sets the
// first k found (lowest index first) and writes their indices into
// out in ascending order, returning true. If fewer than k zero bits
// exist the bitset is left unchanged and false is returned — the
// two-pass (count, then set) design is what makes this all-or-nothing.
func (b *Bitset) Allocate(k int, out []int) bool {
	if k == 0 {
		return true
	}
	if b.n-b.Count() < k {
		return false
	}

	found := 0
	for wi, w := range b.words {
		if found == k {
			break
		}
		if w == ^uint64(0) {
			continue
		}
		inv := ^w
		for inv != 0 && found < k {
			bit := bits.TrailingZeros64(inv)
			idx := wi*wordBits + bit
			if idx >= b.n {
				break
			}
			out[found] = idx
			found++
			inv &^= uint64(1) << uint(bit)
		}
	}

	for i := 0; i < found; i++ {
		b.words[out[i]/wordBits] |= uint64(1) << uint(out[i]%wordBits)
	}
	return true
}

// Free clears the bits at the given indices. Freeing an already-clear
// bit is a programmer error; in debug builds it panics rather than
// silently corrupting the free count.
func (b *Bitset) Free(idx []int) {
	for _, i := range idx {
		if debugChecks && !b.Test(i) {
			panic("bitset: double free")
		}
		b.words[i/wordBits] &^= uint64(1) << uint(i%wordBits)
	}
}

// Set sets bit i directly, bypassing Allocate, for building a known bit
// pattern.
func (b *Bitset) Set(i int) {
	b.words[i/wordBits] |= uint64(1) << uint(i%wordBits)
}
