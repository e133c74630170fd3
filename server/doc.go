// Package server exposes a genohdc.Engine over HTTP.
//
// Routes:
//
//	POST /v1/similarity  - compare two vectors
//	POST /v1/search      - rank a database against a query
//	POST /v1/batch       - rank a database against many queries
//	POST /v1/matrix      - pairwise similarities of a vector set
//	POST /v1/analyze     - bit statistics of a vector
//	POST /v1/encode/dna  - encode a DNA sequence
//	GET  /healthz        - liveness and database size
//	GET  /metrics        - Prometheus metrics
//
// Vectors travel as lower-case hex strings. Search and batch requests may
// carry their own database; otherwise the database loaded from the blob
// store is used.
package server
