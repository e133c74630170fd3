// Package encoder turns biological token streams into hypervectors.
//
// Every encoder has the same shape: derive one item vector per token from a
// codebook.Codebook, optionally bind or permute it for position, and bundle
// the results by majority vote.
//
//   - DNAEncoder: sliding k-mers over an ACGT sequence
//   - MultiScaleEncoder: DNAEncoder at several k at once
//   - SNPEncoder: rsID:allele panels, optionally weighted
//   - HLAEncoder, LocusWeightedHLAEncoder, AlleleHLAEncoder: transplant typing
//   - PGxEncoder: pharmacogene star-allele diplotypes with CPIC activity scores
//
// Invalid input is always an error; nothing is silently skipped except
// tokens missing from a learned codebook, which are counted in
// EncodedSequence.Skipped.
package encoder
