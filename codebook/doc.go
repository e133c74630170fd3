// Package codebook maps tokens (k-mers, alleles, variant keys) to item
// hypervectors.
//
// Two kinds exist:
//
//   - Random derives each vector from a seed on first use and memoizes it in
//     an explicit, owned Cache.
//   - Learned serves vectors loaded verbatim from an external table and never
//     derives new ones; lookups of unknown tokens fail with ErrTokenNotFound.
//
// Both are read-only once built and safe for concurrent use.
package codebook
