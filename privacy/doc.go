// Package privacy holds the parameter validation, errors and random sources
// shared by the two differential-privacy mechanisms:
//
//   - randomized: bit-level randomized response over hypervectors
//   - numeric: Laplace and Gaussian noise for aggregate numeric queries
//
// Every mechanism validates its parameters here before drawing any noise.
package privacy
