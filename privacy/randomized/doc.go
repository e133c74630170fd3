// Package randomized applies ε-differential privacy to hypervectors by
// randomized response: every bit is flipped independently with probability
// p = 1/(1+e^ε).
//
// Two independently noised vectors that were equal agree on a bit with
// probability (1-p)²+p², the retention. CorrectedSimilarity inverts that
// degradation to estimate the similarity of the underlying vectors.
package randomized
