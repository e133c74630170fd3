package simd

// Kernel function pointers, swapped once at init by useKernels.
// Generic implementations are the default.
var (
	kernelXor                = xorGeneric
	kernelPopcount           = popcountGeneric
	kernelHamming            = hammingGeneric
	kernelAndCount           = andCountGeneric
	kernelOrCount            = orCountGeneric
	kernelAccumulate         = accumulateGeneric
	kernelAccumulateWeighted = accumulateWeightedGeneric
	kernelRotate             = rotateGeneric
)

func useKernels(isa ISA) {
	switch isa {
	case POPCNT, NEON:
		kernelXor = xorWords
		kernelPopcount = popcountWords
		kernelHamming = hammingWords
		kernelAndCount = andCountWords
		kernelOrCount = orCountWords
		kernelAccumulate = accumulateWords
		kernelAccumulateWeighted = accumulateWeightedWords
		kernelRotate = rotateWords
	default:
		kernelXor = xorGeneric
		kernelPopcount = popcountGeneric
		kernelHamming = hammingGeneric
		kernelAndCount = andCountGeneric
		kernelOrCount = orCountGeneric
		kernelAccumulate = accumulateGeneric
		kernelAccumulateWeighted = accumulateWeightedGeneric
		kernelRotate = rotateGeneric
	}
}

// ============================================================================
// Public API
// ============================================================================

// XorBytes computes dst[i] = a[i] ^ b[i].
//
// SAFETY: Assumes len(dst) == len(a) == len(b).
func XorBytes(dst, a, b []byte) {
	kernelXor(dst, a, b)
}

// Popcount counts the set bits in data.
func Popcount(data []byte) int {
	return kernelPopcount(data)
}

// Hamming counts the differing bits between a and b.
//
// SAFETY: Assumes len(a) == len(b).
func Hamming(a, b []byte) int {
	return kernelHamming(a, b)
}

// AndCount returns popcount(a AND b).
//
// SAFETY: Assumes len(a) == len(b).
func AndCount(a, b []byte) int {
	return kernelAndCount(a, b)
}

// OrCount returns popcount(a OR b).
//
// SAFETY: Assumes len(a) == len(b).
func OrCount(a, b []byte) int {
	return kernelOrCount(a, b)
}

// Accumulate adds one to counts[i] for every set bit i of data
// (bit i lives in byte i/8 at position i%8).
//
// SAFETY: Assumes len(counts) >= 8*len(data).
func Accumulate(counts []uint32, data []byte) {
	kernelAccumulate(counts, data)
}

// AccumulateWeighted adds w to sums[i] for every set bit i of data.
//
// SAFETY: Assumes len(sums) >= 8*len(data).
func AccumulateWeighted(sums []float64, data []byte, w float64) {
	kernelAccumulateWeighted(sums, data, w)
}

// RotateBits writes src cyclically rotated by shift bit positions into dst,
// so bit i of src becomes bit (i+shift) mod 8*len(src) of dst.
// shift must already be reduced into [0, 8*len(src)).
//
// SAFETY: Assumes len(dst) == len(src) and dst does not alias src.
func RotateBits(dst, src []byte, shift int) {
	kernelRotate(dst, src, shift)
}
