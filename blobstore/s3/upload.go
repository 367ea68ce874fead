package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/numidx/internal/hash"
)

// UploadConfig tunes how index and data files are written to S3.
type UploadConfig struct {
	// PartSize is the multipart chunk size. Index files built with large
	// level sizes are usually a few MB, so most uploads fit in one part.
	PartSize int64
	// Concurrency bounds parallel part uploads.
	Concurrency int
	// EnableChecksum asks S3 to verify a CRC32C per part.
	EnableChecksum bool
	// LeavePartsOnError skips the abort call when an upload fails.
	LeavePartsOnError bool
}

// DefaultUploadConfig returns 8 MiB parts, 5 in flight, with checksums.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:       8 << 20,
		Concurrency:    5,
		EnableChecksum: true,
	}
}

func (c UploadConfig) uploader(client Client) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		if c.PartSize > 0 {
			u.PartSize = c.PartSize
		}
		if c.Concurrency > 0 {
			u.Concurrency = c.Concurrency
		}
		u.LeavePartsOnError = c.LeavePartsOnError
	})
}

// computeCRC32C encodes the Castagnoli checksum the way the S3 API wants it.
func computeCRC32C(data []byte) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], hash.CRC32C(data))
	return base64.StdEncoding.EncodeToString(b[:])
}

// pipeUpload feeds a background manager upload through an io.Pipe.
// The object becomes visible only when Close returns nil.
type pipeUpload struct {
	pw      *io.PipeWriter
	result  chan error
	written int64

	once sync.Once
	err  error
}

func startUpload(ctx context.Context, up *manager.Uploader, bucket, key string, checksum bool) *pipeUpload {
	pr, pw := io.Pipe()
	u := &pipeUpload{pw: pw, result: make(chan error, 1)}

	in := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   pr,
	}
	if checksum {
		in.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
	}

	go func() {
		_, err := up.Upload(ctx, in)
		// Unblock a writer stuck on a failed upload.
		_ = pr.CloseWithError(err)
		u.result <- err
	}()

	return u
}

func (u *pipeUpload) Write(p []byte) (int, error) {
	n, err := u.pw.Write(p)
	u.written += int64(n)
	return n, err
}

// Close ends the body and waits for S3 to acknowledge the object.
func (u *pipeUpload) Close() error {
	u.once.Do(func() {
		if err := u.pw.Close(); err != nil {
			u.err = err
			return
		}
		u.err = <-u.result
	})
	return u.err
}

// Abort fails the body so the uploader cancels any multipart upload.
func (u *pipeUpload) Abort() error {
	u.once.Do(func() {
		_ = u.pw.CloseWithError(context.Canceled)
		<-u.result
		u.err = context.Canceled
	})
	return nil
}

// Sync is a no-op. Nothing is durable before Close.
func (u *pipeUpload) Sync() error { return nil }

// Written reports how many bytes were handed to the uploader.
func (u *pipeUpload) Written() int64 { return u.written }

func putObject(ctx context.Context, client Client, bucket, key string, data []byte) error {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:         aws.String(bucket),
		Key:            aws.String(key),
		Body:           bytes.NewReader(data),
		ContentLength:  aws.Int64(int64(len(data))),
		ChecksumCRC32C: aws.String(computeCRC32C(data)),
	})
	return err
}
