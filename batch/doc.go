// Package batch encodes and compares many sequences at once.
//
// An Encoder fans DNA encoding out over chunks of the input, bounded by the
// resource controller's worker count, and returns results in input order.
// Failures do not abort the batch: they are collected, and unless
// Config.SkipInvalid is set the call also returns *ErrPartialFailure.
//
// SimilarityMatrix, TopK and AboveThreshold compare vectors that are
// already encoded. QueryBuilder combines both steps for a query set against
// a corpus.
package batch
