// Package cache provides a byte-bounded LRU cache.
//
// Map charges every cached value against an optional resource.Controller so
// cached data counts toward the process memory limit. A value the controller
// refuses is simply not cached. LRU is the instantiation used for blob
// content; the codebook cache keys derived item vectors the same way.
package cache
