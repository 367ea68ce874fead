package blobstore

import (
	"context"
	"errors"
	"io"

	"github.com/hupe1980/numidx/internal/cache"
	"golang.org/x/sync/errgroup"
)

// DefaultBlockSize is the block size used by CachingStore when none is given.
const DefaultBlockSize = 4096

// maxFillConcurrency bounds the number of backend requests issued by one read.
const maxFillConcurrency = 16

// CachingStore wraps a Store and adds block-level read caching.
// Index pages are small and hot, so remote stores benefit from it most.
type CachingStore struct {
	inner     Store
	cache     cache.BlockCache
	blockSize int64
}

// NewCachingStore creates a new CachingStore.
// blockSize defaults to DefaultBlockSize if <= 0.
func NewCachingStore(inner Store, c cache.BlockCache, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &CachingStore{
		inner:     inner,
		cache:     c,
		blockSize: blockSize,
	}
}

// Open opens a blob whose reads go through the block cache.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &CachingBlob{
		inner:     b,
		cache:     s.cache,
		name:      name,
		blockSize: s.blockSize,
	}, nil
}

// Create passes through to the inner store after dropping cached blocks for name.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	s.invalidate(name)
	return s.inner.Create(ctx, name)
}

// Put writes through to the inner store after dropping cached blocks for name.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

// Delete removes the blob and its cached blocks.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

// List passes through to the inner store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

func (s *CachingStore) invalidate(name string) {
	s.cache.Invalidate(func(key cache.BlockKey) bool {
		return key.Path == name
	})
}

// CachingBlob wraps a Blob and uses the block cache for reads.
type CachingBlob struct {
	inner     Blob
	cache     cache.BlockCache
	name      string
	blockSize int64
}

// Close closes the underlying blob. Cached blocks stay valid for later opens.
func (b *CachingBlob) Close() error {
	return b.inner.Close()
}

// Size returns the size of the underlying blob.
func (b *CachingBlob) Size() int64 {
	return b.inner.Size()
}

// ReadAt serves the read from cached blocks, fetching missing runs from the inner blob.
func (b *CachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	size := b.Size()
	if off < 0 || off >= size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	want := p
	if rem := size - off; int64(len(want)) > rem {
		want = want[:rem]
	}

	startBlock := off / b.blockSize
	endBlock := (off + int64(len(want)) - 1) / b.blockSize

	if err := b.fillCache(ctx, startBlock, endBlock); err != nil {
		return 0, err
	}

	total := 0
	for blk := startBlock; blk <= endBlock; blk++ {
		blkStart := blk * b.blockSize
		lo := max(blkStart, off)
		hi := min(blkStart+b.blockSize, off+int64(len(want)))

		data, err := b.block(ctx, blk)
		if err != nil {
			return total, err
		}
		src := lo - blkStart
		if src >= int64(len(data)) {
			return total, io.ErrUnexpectedEOF
		}
		total += copy(want[lo-off:hi-off], data[src:])
	}

	if total < len(p) {
		return total, io.EOF
	}
	return total, nil
}

// ReadRange returns a sequential reader over the range, backed by ReadAt.
func (b *CachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	start, end, err := rangeOf(b.Size(), off, length)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(&sectionReader{blob: b, ctx: ctx, off: start, limit: end}), nil
}

func (b *CachingBlob) key(blk int64) cache.BlockKey {
	return cache.BlockKey{Path: b.name, Offset: uint64(blk)}
}

type blockRun struct {
	start, count int64
}

// fillCache loads the missing blocks in [startBlock, endBlock].
// Contiguous runs of missing blocks are fetched with a single backend request each.
func (b *CachingBlob) fillCache(ctx context.Context, startBlock, endBlock int64) error {
	var runs []blockRun
	cur := blockRun{start: -1}

	for blk := startBlock; blk <= endBlock; blk++ {
		if _, ok := b.cache.Get(ctx, b.key(blk)); ok {
			if cur.start != -1 {
				runs = append(runs, cur)
				cur = blockRun{start: -1}
			}
			continue
		}
		if cur.start == -1 {
			cur = blockRun{start: blk}
		}
		cur.count++
	}
	if cur.start != -1 {
		runs = append(runs, cur)
	}
	if len(runs) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFillConcurrency)

	for _, run := range runs {
		g.Go(func() error {
			return b.fetchRun(gctx, run)
		})
	}
	return g.Wait()
}

func (b *CachingBlob) fetchRun(ctx context.Context, run blockRun) error {
	size := b.Size()
	byteStart := run.start * b.blockSize
	if byteStart >= size {
		return nil
	}
	byteSize := min(run.count*b.blockSize, size-byteStart)

	buf := make([]byte, byteSize)
	n, err := b.inner.ReadAt(ctx, buf, byteStart)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	buf = buf[:n]

	for i := int64(0); i < run.count; i++ {
		lo := i * b.blockSize
		if lo >= int64(len(buf)) {
			break
		}
		hi := min(lo+b.blockSize, int64(len(buf)))
		// Copy so a cached block does not pin the whole run buffer.
		b.cache.Set(ctx, b.key(run.start+i), append([]byte(nil), buf[lo:hi]...))
	}
	return nil
}

// block returns one block, reading it from the inner blob if the cache lost it.
func (b *CachingBlob) block(ctx context.Context, blk int64) ([]byte, error) {
	if data, ok := b.cache.Get(ctx, b.key(blk)); ok {
		return data, nil
	}

	size := b.Size()
	off := blk * b.blockSize
	buf := make([]byte, min(b.blockSize, size-off))
	n, err := b.inner.ReadAt(ctx, buf, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	buf = buf[:n]
	if n > 0 {
		b.cache.Set(ctx, b.key(blk), buf)
	}
	return buf, nil
}
