// Package confidence scores hypervector similarities against the random
// baseline of 0.5.
//
// Independent random hypervectors of dimension D agree on a bit with
// probability 1/2, so their similarity is approximately normal with mean 0.5
// and standard deviation sqrt(0.25/D). Calculate reports the z-score of an
// observed similarity, its one-sided p-value, and a coarse Level drawn from
// Thresholds.
package confidence
