package simd

import "math/bits"

// ==============================================================================
// Generic implementations (one byte at a time)
// ==============================================================================

func xorGeneric(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

func popcountGeneric(data []byte) int {
	n := 0
	for _, x := range data {
		n += bits.OnesCount8(x)
	}
	return n
}

func hammingGeneric(a, b []byte) int {
	n := 0
	for i := range a {
		n += bits.OnesCount8(a[i] ^ b[i])
	}
	return n
}

func andCountGeneric(a, b []byte) int {
	n := 0
	for i := range a {
		n += bits.OnesCount8(a[i] & b[i])
	}
	return n
}

func orCountGeneric(a, b []byte) int {
	n := 0
	for i := range a {
		n += bits.OnesCount8(a[i] | b[i])
	}
	return n
}

func accumulateGeneric(counts []uint32, data []byte) {
	for i, x := range data {
		if x == 0 {
			continue
		}
		base := i * 8
		for j := 0; j < 8; j++ {
			if x&(1<<j) != 0 {
				counts[base+j]++
			}
		}
	}
}

func accumulateWeightedGeneric(sums []float64, data []byte, w float64) {
	for i, x := range data {
		if x == 0 {
			continue
		}
		base := i * 8
		for j := 0; j < 8; j++ {
			if x&(1<<j) != 0 {
				sums[base+j] += w
			}
		}
	}
}

func rotateGeneric(dst, src []byte, shift int) {
	clear(dst)
	d := len(src) * 8
	if d == 0 {
		return
	}
	for i := 0; i < d; i++ {
		if src[i>>3]&(1<<(i&7)) == 0 {
			continue
		}
		p := i + shift
		if p >= d {
			p -= d
		}
		dst[p>>3] |= 1 << (p & 7)
	}
}
