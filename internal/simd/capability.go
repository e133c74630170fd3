package simd

import (
	"os"
	"runtime"
	"strings"
)

// ISA represents the kernel set selected for this process.
type ISA uint8

const (
	// Generic represents the byte-at-a-time pure Go kernels.
	Generic ISA = iota
	// POPCNT represents x86-64 word kernels backed by the POPCNT instruction.
	POPCNT
	// NEON represents ARM64 word kernels backed by the CNT instruction.
	NEON
)

// String returns the string representation of an ISA.
func (i ISA) String() string {
	switch i {
	case Generic:
		return "generic"
	case POPCNT:
		return "popcnt"
	case NEON:
		return "neon"
	default:
		return "unknown"
	}
}

// ParseISA parses a string into an ISA value.
func ParseISA(s string) (ISA, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generic":
		return Generic, true
	case "popcnt":
		return POPCNT, true
	case "neon":
		return NEON, true
	default:
		return Generic, false
	}
}

// EnvOverride names the environment variable that forces an ISA.
const EnvOverride = "GENOHDC_SIMD"

// Package-level state, initialized once at package init.
var (
	activeISA   ISA
	hasOverride bool

	// CPU feature flags (set by platform-specific init)
	hasPOPCNT bool // x86-64 POPCNT
	hasASIMD  bool // ARM64 NEON
)

// initCapabilities is called from platform-specific init functions
// after CPU features are detected.
func initCapabilities() {
	if override := os.Getenv(EnvOverride); override != "" {
		if isa, ok := ParseISA(override); ok {
			hasOverride = true
			if isISAAvailable(isa) {
				activeISA = isa
				useKernels(isa)
				return
			}
			// Unavailable override: fall through to auto-detection.
		}
	}

	activeISA = selectBestISA()
	useKernels(activeISA)
}

// isISAAvailable checks if an ISA is supported on this CPU.
func isISAAvailable(isa ISA) bool {
	switch isa {
	case Generic:
		return true
	case POPCNT:
		return hasPOPCNT
	case NEON:
		return hasASIMD
	default:
		return false
	}
}

// selectBestISA chooses the kernel set for the current platform.
func selectBestISA() ISA {
	switch runtime.GOARCH {
	case "amd64":
		if hasPOPCNT {
			return POPCNT
		}
	case "arm64":
		if hasASIMD {
			return NEON
		}
	}
	return Generic
}

// ActiveISA returns the currently active ISA.
func ActiveISA() ISA {
	return activeISA
}

// IsOverridden returns true if GENOHDC_SIMD was set to a known ISA.
func IsOverridden() bool {
	return hasOverride
}

// HasPOPCNT returns true if x86-64 POPCNT is available.
func HasPOPCNT() bool {
	return hasPOPCNT
}

// HasASIMD returns true if ARM64 NEON is available.
func HasASIMD() bool {
	return hasASIMD
}

// ForceISA switches the active kernel set and returns a function restoring
// the previous one. It is intended for tests and benchmarks; calling it
// concurrently with kernel use is a data race.
func ForceISA(isa ISA) (restore func(), ok bool) {
	prev := activeISA
	if !isISAAvailable(isa) {
		return func() {}, false
	}
	activeISA = isa
	useKernels(isa)
	return func() {
		activeISA = prev
		useKernels(prev)
	}, true
}
