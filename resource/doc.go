// Package resource bounds the resources genohdc consumes: memory held by
// codebook caches and indexes, the number of concurrent encode/search
// workers, and the byte rate of snapshot and blob transfers.
//
// A nil *Controller is valid and imposes no limits.
package resource
