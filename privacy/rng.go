package privacy

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// NewSeededRand returns a reproducible ChaCha8 generator for seed.
func NewSeededRand(seed uint64) *rand.Rand {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	return rand.New(rand.NewChaCha8(key))
}

// NewSecureRand returns a ChaCha8 generator keyed from crypto/rand.
func NewSecureRand() (*rand.Rand, error) {
	var key [32]byte
	if _, err := crand.Read(key[:]); err != nil {
		return nil, fmt.Errorf("privacy: read entropy: %w", err)
	}
	return rand.New(rand.NewChaCha8(key)), nil
}

// NewRand returns NewSeededRand(*seed) or, when seed is nil, NewSecureRand.
func NewRand(seed *uint64) (*rand.Rand, error) {
	if seed != nil {
		return NewSeededRand(*seed), nil
	}
	return NewSecureRand()
}
