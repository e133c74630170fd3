// Package hypervector implements bit-packed binary hypervectors and the
// algebra used to build genomic encodings from them.
//
// A Hypervector holds D bits (canonically 16,384) packed LSB-first: bit i
// lives in byte i/8 at position i%8. Item vectors are derived
// deterministically from a Seed and an identifier, so two processes using
// the same seed produce byte-identical encodings.
//
// # Operations
//
//   - Bind: XOR, self-inverse, associates two concepts
//   - Bundle / WeightedBundle: per-bit majority, superposes a set
//   - Permute: cyclic bit rotation, encodes order
//
// # Similarity
//
//	s, err := hypervector.HammingSimilarity(a, b) // matching bits / D
//	c, err := hypervector.CosineSimilarity(a, b)  // (2*matching - D) / D
//
// Comparing vectors of different dimensions returns *ErrDimensionMismatch;
// nothing is ever padded or truncated.
package hypervector
