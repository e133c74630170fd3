// Package hash provides the checksum used for index snapshots and blob
// uploads.
//
// Snapshots end with a CRC32-Castagnoli trailer over the payload, and the
// S3 and GCS blob stores send the same checksum so the service can reject
// a corrupted upload. Go's hash/crc32 uses SSE4.2 or the ARM CRC extension
// for this polynomial when available.
package hash
