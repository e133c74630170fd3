// Package blobstore stores named, immutable byte blobs such as index
// snapshots, vector databases, learned codebooks and privacy budget state.
//
// Store is the interface every backend implements. Implementations must be
// safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests and ephemeral servers
//   - LocalStore: a directory on the local file system, atomic writes
//   - CachingStore: LRU read cache in front of another Store
//   - minio.Store: MinIO and other S3-compatible services
//   - s3.Store: Amazon S3
//   - gcs.Store: Google Cloud Storage
//
// Blobs are usually written through Write and read through Read, which adapt
// a Store to the io.Writer / io.Reader based Save and Load functions of the
// index and codebook packages:
//
//	err := blobstore.Write(ctx, store, "cohort.ghix", func(w io.Writer) error {
//	    return idx.Save(ctx, w)
//	})
package blobstore
