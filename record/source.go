package record

import (
	"context"
	"io"
	"os"

	"github.com/hupe1980/numidx/blobstore"
	"github.com/hupe1980/numidx/internal/fs"
	"github.com/hupe1980/numidx/internal/resource"
)

// FileSource scans a local data file.
type FileSource struct {
	// Path is the data file path.
	Path string
	// FS is the file system to open Path on. Nil means the local file system.
	FS fs.FileSystem
	// Controller rate limits reads. Nil means unlimited.
	Controller *resource.Controller
	// SkipPayload skips payload decoding, for scans that only need ids and offsets.
	SkipPayload bool
}

// Open opens the file and returns a Scanner positioned at the first frame.
func (s FileSource) Open(ctx context.Context) (Reader, io.Closer, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	fsys := s.FS
	if fsys == nil {
		fsys = fs.Default
	}
	f, err := fsys.OpenFile(s.Path, os.O_RDONLY, 0)
	if err != nil {
		return nil, nil, err
	}
	return newScanner(ctx, f, s.Controller, s.SkipPayload), f, nil
}

// BlobSource scans a data blob in a blobstore.Store.
type BlobSource struct {
	Store      blobstore.Store
	Name       string
	Controller *resource.Controller
	// SkipPayload skips payload decoding, for scans that only need ids and offsets.
	SkipPayload bool
}

// Open opens the blob and returns a Scanner positioned at the first frame.
func (s BlobSource) Open(ctx context.Context) (Reader, io.Closer, error) {
	blob, err := s.Store.Open(ctx, s.Name)
	if err != nil {
		return nil, nil, err
	}
	return newScanner(ctx, blobstore.NewReader(ctx, blob), s.Controller, s.SkipPayload), blob, nil
}

func newScanner(ctx context.Context, r io.Reader, rc *resource.Controller, skip bool) *Scanner {
	if rc != nil {
		r = resource.NewRateLimitedReader(ctx, r, rc)
	}
	var opts []ScannerOption
	if skip {
		opts = append(opts, SkipPayloads())
	}
	return NewScanner(r, opts...)
}
