// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	if err != nil {
//	    return err
//	}
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "genohdc/")
//
// Small blobs are written with a single PutObject carrying a CRC32C
// checksum; blobs larger than the upload part size go through the
// multipart uploader.
package s3
