// Package minio stores index and data blobs in MinIO or another
// S3-compatible server through the MinIO client.
//
// Blobs are read with ranged GETs, so resolving an id fetches only the pages
// on its path. Create streams through a pipe into PutObject, which lets a
// build upload its index without staging the whole file in memory.
//
//	store, err := minio.Dial("localhost:9000", accessKey, secretKey, false, "datasets", "events/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	idx, err := numidx.Open(ctx, store, "events.idx", numidx.WithBlockCache(32<<20))
//
// Use NewStore to share an existing *minio.Client.
package minio
