package simd

import (
	"encoding/binary"
	"math/bits"
)

// ==============================================================================
// Word implementations (64 bits at a time, 4x unrolled where it pays off)
// ==============================================================================
//
// Bytes are loaded little-endian so bit i of the byte stream is bit i%64 of
// word i/64. This keeps the LSB-first bit order identical to the generic set.

func load(b []byte, i int) uint64 { return binary.LittleEndian.Uint64(b[i:]) }

func xorWords(dst, a, b []byte) {
	n := len(dst)
	i := 0
	for ; i+32 <= n; i += 32 {
		binary.LittleEndian.PutUint64(dst[i:], load(a, i)^load(b, i))
		binary.LittleEndian.PutUint64(dst[i+8:], load(a, i+8)^load(b, i+8))
		binary.LittleEndian.PutUint64(dst[i+16:], load(a, i+16)^load(b, i+16))
		binary.LittleEndian.PutUint64(dst[i+24:], load(a, i+24)^load(b, i+24))
	}
	for ; i+8 <= n; i += 8 {
		binary.LittleEndian.PutUint64(dst[i:], load(a, i)^load(b, i))
	}
	for ; i < n; i++ {
		dst[i] = a[i] ^ b[i]
	}
}

func popcountWords(data []byte) int {
	n := len(data)
	var c0, c1, c2, c3 int
	i := 0
	for ; i+32 <= n; i += 32 {
		c0 += bits.OnesCount64(load(data, i))
		c1 += bits.OnesCount64(load(data, i+8))
		c2 += bits.OnesCount64(load(data, i+16))
		c3 += bits.OnesCount64(load(data, i+24))
	}
	for ; i+8 <= n; i += 8 {
		c0 += bits.OnesCount64(load(data, i))
	}
	for ; i < n; i++ {
		c0 += bits.OnesCount8(data[i])
	}
	return c0 + c1 + c2 + c3
}

func hammingWords(a, b []byte) int {
	n := len(a)
	var c0, c1, c2, c3 int
	i := 0
	for ; i+32 <= n; i += 32 {
		c0 += bits.OnesCount64(load(a, i) ^ load(b, i))
		c1 += bits.OnesCount64(load(a, i+8) ^ load(b, i+8))
		c2 += bits.OnesCount64(load(a, i+16) ^ load(b, i+16))
		c3 += bits.OnesCount64(load(a, i+24) ^ load(b, i+24))
	}
	for ; i+8 <= n; i += 8 {
		c0 += bits.OnesCount64(load(a, i) ^ load(b, i))
	}
	for ; i < n; i++ {
		c0 += bits.OnesCount8(a[i] ^ b[i])
	}
	return c0 + c1 + c2 + c3
}

func andCountWords(a, b []byte) int {
	n := len(a)
	c := 0
	i := 0
	for ; i+8 <= n; i += 8 {
		c += bits.OnesCount64(load(a, i) & load(b, i))
	}
	for ; i < n; i++ {
		c += bits.OnesCount8(a[i] & b[i])
	}
	return c
}

func orCountWords(a, b []byte) int {
	n := len(a)
	c := 0
	i := 0
	for ; i+8 <= n; i += 8 {
		c += bits.OnesCount64(load(a, i) | load(b, i))
	}
	for ; i < n; i++ {
		c += bits.OnesCount8(a[i] | b[i])
	}
	return c
}

func accumulateWords(counts []uint32, data []byte) {
	n := len(data)
	i := 0
	for ; i+8 <= n; i += 8 {
		w := load(data, i)
		base := i * 8
		for w != 0 {
			counts[base+bits.TrailingZeros64(w)]++
			w &= w - 1
		}
	}
	for ; i < n; i++ {
		x := data[i]
		base := i * 8
		for x != 0 {
			counts[base+bits.TrailingZeros8(x)]++
			x &= x - 1
		}
	}
}

func accumulateWeightedWords(sums []float64, data []byte, w float64) {
	n := len(data)
	i := 0
	for ; i+8 <= n; i += 8 {
		word := load(data, i)
		base := i * 8
		for word != 0 {
			sums[base+bits.TrailingZeros64(word)] += w
			word &= word - 1
		}
	}
	for ; i < n; i++ {
		x := data[i]
		base := i * 8
		for x != 0 {
			sums[base+bits.TrailingZeros8(x)] += w
			x &= x - 1
		}
	}
}

// rotateWords rotates whole 64-bit words and stitches the bit remainder
// across word boundaries. Buffers that are not a multiple of 8 bytes use
// the generic path.
func rotateWords(dst, src []byte, shift int) {
	if len(src)%8 != 0 || len(src) == 0 {
		rotateGeneric(dst, src, shift)
		return
	}
	n := len(src) / 8
	ws := shift / 64
	bs := uint(shift % 64)
	for j := 0; j < n; j++ {
		hi := (j - ws + n) % n
		w := load(src, hi*8)
		if bs != 0 {
			lo := (hi - 1 + n) % n
			w = w<<bs | load(src, lo*8)>>(64-bs)
		}
		binary.LittleEndian.PutUint64(dst[j*8:], w)
	}
}
