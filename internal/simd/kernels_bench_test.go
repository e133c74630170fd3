package simd

import (
	"math/rand"
	"testing"
)

// Run with GENOHDC_SIMD=generic to compare against the byte kernels.

func benchRand() *rand.Rand { return rand.New(rand.NewSource(1)) }

func BenchmarkHamming2048(b *testing.B) {
	r := benchRand()
	x, y := randBytes(r, 2048), randBytes(r, 2048)
	b.SetBytes(2048)
	b.ResetTimer()
	for b.Loop() {
		_ = Hamming(x, y)
	}
}

func BenchmarkAccumulate2048(b *testing.B) {
	r := benchRand()
	x := randBytes(r, 2048)
	counts := make([]uint32, 2048*8)
	b.SetBytes(2048)
	b.ResetTimer()
	for b.Loop() {
		Accumulate(counts, x)
	}
}

func BenchmarkRotateBits2048(b *testing.B) {
	r := benchRand()
	x := randBytes(r, 2048)
	dst := make([]byte, 2048)
	b.SetBytes(2048)
	b.ResetTimer()
	for b.Loop() {
		RotateBits(dst, x, 1237)
	}
}
