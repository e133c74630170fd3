//go:build arm64

package simd

import "golang.org/x/sys/cpu"

// ASIMD selects the 64-bit word kernels behind the hypervector popcount
// and XOR operations, where bits.OnesCount64 lowers to the NEON CNT
// instruction.
func init() {
	hasASIMD = cpu.ARM64.HasASIMD
	initCapabilities()
}
