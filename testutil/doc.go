// Package testutil provides testing utilities for genohdc.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random hypervectors and DNA, computing
// exact nearest neighbors, and verifying search recall.
//
// # Random Data Generation
//
//	rng := testutil.NewRNG(seed)
//	v := rng.Vector(hypervector.Dimension)     // uniform random bits
//	near := rng.Flip(v, 0.05)                  // 5% of bits flipped
//	seq := rng.DNA(120)                        // random ACGT string
//
// # Exact Search (Ground Truth)
//
//	results, _ := testutil.ExactTopK(query, corpus, k, distance.MetricHamming)
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(exact, approx)
package testutil
