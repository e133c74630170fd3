//go:build amd64

package simd

import "golang.org/x/sys/cpu"

// POPCNT selects the 64-bit word kernels behind the hypervector popcount
// and XOR operations. Without it the generic byte kernels stay active.
func init() {
	hasPOPCNT = cpu.X86.HasPOPCNT
	initCapabilities()
}
