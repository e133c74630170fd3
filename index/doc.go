// Package index stores encoded hypervectors under string identifiers and
// answers exact nearest-neighbour queries.
//
// # Search
//
// Search scores every live entry against the query with the configured
// metric and returns the k best, ordered by similarity and then by
// insertion order. Re-adding an identifier replaces its vector in place and
// keeps its original position in that order.
//
// The scan runs on one goroutine unless WithParallelism is set, in which
// case the candidate set is split into shards that are scanned
// concurrently and merged. Both paths return identical results.
//
// # Filtering
//
// Entries may carry tags. Tag membership is kept in Roaring bitmaps, so a
// query restricted with WithAllTags or WithAnyTag only scores matching
// entries.
//
// # Persistence
//
// Save writes a compact binary snapshot (zstd or LZ4 compressed, CRC32C
// checksummed) that Load restores. WriteDatabase and ReadDatabase exchange
// entries as a JSON array of {id, vector, metadata} objects with
// hex-encoded vectors.
package index
