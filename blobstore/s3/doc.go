// Package s3 provides an S3 implementation of the blobstore.Store interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("indexes/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	idx, err := numidx.Open(ctx, store, "events.idx")
//
// # Features
//
//   - Range reads, so a lookup fetches only the pages it touches
//   - Streaming multipart uploads for building straight into a bucket
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
