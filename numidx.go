package numidx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/numidx/blobstore"
	"github.com/hupe1980/numidx/internal/cache"
	"github.com/hupe1980/numidx/internal/page"
)

// Index resolves record ids to data file offsets.
//
// The root page is decoded at open time and never changes. Every level below
// it is demand-paged through its own LRU cache keyed by the page's first id.
// Lookup, Resolve and Fetch are safe for concurrent use.
type Index struct {
	name   string
	store  blobstore.Store
	opts   options
	logger *Logger

	header       page.Header
	levelEntries []uint64
	root         []page.Entry

	// caches[k] holds the decoded pages of level k, for k < levels-1.
	caches []*cache.LRU[uint64, []page.Entry]
	blocks *cache.ShardedBlockCache

	// mu serialises handle reopen, page reads and cache fills.
	mu     sync.Mutex
	blob   blobstore.Blob
	closed atomic.Bool
}

// Open opens the index stored under name in store and loads its root page.
func Open(ctx context.Context, store blobstore.Store, name string, optFns ...Option) (*Index, error) {
	opts := applyOptions(optFns)
	logger := opts.logger.WithIndex(name)

	x := &Index{
		name:   name,
		store:  store,
		opts:   opts,
		logger: logger,
	}
	if opts.blockCacheBytes > 0 {
		x.blocks = cache.NewShardedBlockCache(opts.blockCacheBytes, opts.resource)
		x.store = blobstore.NewCachingStore(store, x.blocks, blobstore.DefaultBlockSize)
	}

	err := x.load(ctx)
	logger.LogOpen(ctx, name, x.header.Levels, x.header.DataCount, err)
	if err != nil {
		x.closeHandles()
		return nil, err
	}
	return x, nil
}

// OpenFile opens an index file on the local file system. The file is memory
// mapped unless WithFileSystem supplies a custom file system.
func OpenFile(ctx context.Context, path string, optFns ...Option) (*Index, error) {
	opts := applyOptions(optFns)

	var localOpts []blobstore.LocalOption
	if opts.fileSystem != nil {
		localOpts = append(localOpts, blobstore.WithFileSystem(opts.fileSystem))
	}
	store := blobstore.NewLocalStore(filepath.Dir(path), localOpts...)
	return Open(ctx, store, filepath.Base(path), optFns...)
}

func (x *Index) load(ctx context.Context) error {
	blob, err := x.store.Open(ctx, x.name)
	if err != nil {
		return &OpenError{Op: "open", Name: x.name, Err: err}
	}
	x.blob = blob

	buf, err := readWindow(ctx, blob, 0, page.MaxHeaderSize)
	if err != nil {
		return fmt.Errorf("%w: read header: %w", ErrCorrupt, err)
	}
	h, _, err := page.DecodeHeader(buf)
	if err != nil {
		return fmt.Errorf("numidx: %s: %w", x.name, err)
	}
	x.header = h
	x.levelEntries = page.LevelEntries(h.DataCount, h.LevelSize)

	rootN := int(x.levelEntries[h.Levels-1])
	if rootN > 0 {
		if h.RootOffset >= uint64(blob.Size()) {
			return fmt.Errorf("%w: root offset %d beyond end of %d byte index", ErrCorrupt, h.RootOffset, blob.Size())
		}
		buf, err := readWindow(ctx, blob, int64(h.RootOffset), int64(page.MaxPageSize(rootN)))
		if err != nil {
			return fmt.Errorf("%w: read root: %w", ErrCorrupt, err)
		}
		if x.root, _, err = page.DecodePage(buf, rootN); err != nil {
			return fmt.Errorf("numidx: %s root: %w", x.name, err)
		}
	}

	x.caches = make([]*cache.LRU[uint64, []page.Entry], h.Levels-1)
	for k := range x.caches {
		x.caches[k] = cache.NewLRU[uint64, []page.Entry](cache.Options[[]page.Entry]{
			MaxEntries: x.opts.pageCacheCapacity,
			MaxBytes:   x.opts.pageCacheBytes,
			Sizer:      func(p []page.Entry) int64 { return int64(len(p)) * page.EntrySize },
			Controller: x.opts.resource,
		})
	}
	return nil
}

// readWindow reads up to n bytes at off, stopping early at the end of the blob.
func readWindow(ctx context.Context, blob blobstore.Blob, off, n int64) ([]byte, error) {
	if rem := blob.Size() - off; rem < n {
		n = rem
	}
	if n <= 0 {
		return nil, io.ErrUnexpectedEOF
	}
	buf := make([]byte, n)
	read, err := blob.ReadAt(ctx, buf, off)
	if err != nil && !(errors.Is(err, io.EOF) && read > 0) {
		return nil, err
	}
	return buf[:read], nil
}

// Name returns the name the index was opened under.
func (x *Index) Name() string { return x.name }

// Levels returns the number of levels, root included.
func (x *Index) Levels() int { return x.header.Levels }

// LevelSize returns the maximum number of entries per page.
func (x *Index) LevelSize() int { return x.header.LevelSize }

// DataCount returns the number of indexed records.
func (x *Index) DataCount() uint64 { return x.header.DataCount }

// ensureOpenLocked returns the blob handle, reopening it after Release.
// x.mu must be held.
func (x *Index) ensureOpenLocked(ctx context.Context) (blobstore.Blob, error) {
	if x.closed.Load() {
		return nil, ErrClosed
	}
	if x.blob != nil {
		return x.blob, nil
	}
	blob, err := x.store.Open(ctx, x.name)
	if err != nil {
		return nil, &OpenError{Op: "reopen", Name: x.name, Err: err}
	}
	x.logger.DebugContext(ctx, "index blob reopened")
	x.blob = blob
	return blob, nil
}

// Release closes the underlying blob handle but keeps the root and all cached
// pages. The next cache miss reopens the blob.
func (x *Index) Release() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.blob == nil {
		return nil
	}
	err := x.blob.Close()
	x.blob = nil
	return err
}

// Close releases the blob handle and all caches. Any later call returns ErrClosed.
func (x *Index) Close() error {
	if x.closed.Swap(true) {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for _, c := range x.caches {
		c.Purge()
	}
	return x.closeHandles()
}

func (x *Index) closeHandles() error {
	var errs []error
	if x.blob != nil {
		errs = append(errs, x.blob.Close())
		x.blob = nil
	}
	if x.blocks != nil {
		errs = append(errs, x.blocks.Close())
	}
	return errors.Join(errs...)
}

// Stats is a point-in-time view of an index and its page caches.
type Stats struct {
	Levels      int
	LevelSize   int
	DataCount   uint64
	RootEntries int
	// CachedPages is the number of pages held across all level caches.
	CachedPages int
	// CachedEntries is the number of decoded entries held across all level caches.
	CachedEntries uint64
	// MemoryBytes approximates the memory held by the root and cached pages.
	MemoryBytes int64
	PerLevel    []LevelStats
}

// LevelStats describes the page cache of one level.
type LevelStats struct {
	Level     int
	Pages     int
	Entries   uint64
	Bytes     int64
	Hits      int64
	Misses    int64
	Evictions int64
}

// DumpStatistics returns cache statistics and logs them at INFO.
func (x *Index) DumpStatistics() Stats {
	s := Stats{
		Levels:      x.header.Levels,
		LevelSize:   x.header.LevelSize,
		DataCount:   x.header.DataCount,
		RootEntries: len(x.root),
		MemoryBytes: int64(len(x.root)) * page.EntrySize,
	}
	for k, c := range x.caches {
		cs := c.Stats()
		lv := LevelStats{
			Level:     k,
			Pages:     cs.Entries,
			Entries:   uint64(cs.Bytes / page.EntrySize),
			Bytes:     cs.Bytes,
			Hits:      cs.Hits,
			Misses:    cs.Misses,
			Evictions: cs.Evictions,
		}
		s.CachedPages += lv.Pages
		s.CachedEntries += lv.Entries
		s.MemoryBytes += lv.Bytes
		s.PerLevel = append(s.PerLevel, lv)
	}
	x.logger.LogStats(context.Background(), s)
	return s
}
