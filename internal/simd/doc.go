// Package simd provides the bit kernels behind hypervector operations.
//
// # Supported Platforms
//
//   - x86-64: POPCNT
//   - ARM64: NEON (CNT)
//
// Runtime CPU feature detection selects the kernel set. Two sets exist:
// a byte-at-a-time generic set and a 64-bit word set that relies on the
// compiler lowering math/bits to POPCNT/CNT. Both sets must produce
// bit-identical output for every input; the tests enforce this.
//
// Set GENOHDC_SIMD=generic to force the generic kernels.
//
// # Operations
//
//   - Logic: XorBytes
//   - Counting: Popcount, Hamming, AndCount, OrCount
//   - Bundling: Accumulate, AccumulateWeighted
//   - Permutation: RotateBits
package simd
