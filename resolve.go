package numidx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/numidx/blobstore"
	"github.com/hupe1980/numidx/internal/conv"
	"github.com/hupe1980/numidx/internal/page"
)

// Result is the outcome of a Lookup.
type Result struct {
	// Offsets holds the data file offset of every resolved id, in input order.
	Offsets []int64
	// IDs holds the resolved ids, aligned with Offsets.
	IDs []uint64
	// Missing holds the ids that are not in the index.
	Missing *roaring64.Bitmap
	// Failed holds the ids whose pages could not be read or decoded.
	Failed *roaring64.Bitmap
}

// Len returns the number of resolved ids.
func (r *Result) Len() int { return len(r.Offsets) }

// Resolve maps ids to data file offsets. The result keeps the input order and
// silently omits ids that are not in the index.
//
// An id whose page cannot be read or decoded is skipped as well. Resolution
// continues, and the returned error wraps ErrCorrupt alongside the offsets that
// were found. If the index blob cannot be reopened the batch is aborted and
// Resolve returns nil with an *OpenError.
func (x *Index) Resolve(ctx context.Context, ids []uint64) ([]int64, error) {
	res, err := x.Lookup(ctx, ids)
	if res == nil {
		return nil, err
	}
	return res.Offsets, err
}

// Lookup is like Resolve but also reports which ids matched, which are
// missing and which failed.
func (x *Index) Lookup(ctx context.Context, ids []uint64) (*Result, error) {
	start := time.Now()

	res, err := x.lookup(ctx, ids)

	found, failed := 0, 0
	if res != nil {
		found = res.Len()
		failed = int(res.Failed.GetCardinality())
	}
	d := time.Since(start)
	x.opts.metricsCollector.RecordResolve(len(ids), found, d, err)
	x.logger.LogResolve(ctx, len(ids), found, failed, d, err)
	return res, err
}

func (x *Index) lookup(ctx context.Context, ids []uint64) (*Result, error) {
	if x.closed.Load() {
		return nil, ErrClosed
	}

	res := &Result{
		Offsets: make([]int64, 0, len(ids)),
		IDs:     make([]uint64, 0, len(ids)),
		Missing: roaring64.New(),
		Failed:  roaring64.New(),
	}

	var errs []error
	for _, id := range ids {
		off, ok, err := x.resolveOne(ctx, id)
		switch {
		case err != nil && isAbort(err):
			return nil, err
		case err != nil:
			res.Failed.Add(id)
			errs = append(errs, fmt.Errorf("id %d: %w", id, err))
		case !ok:
			res.Missing.Add(id)
		default:
			res.Offsets = append(res.Offsets, off)
			res.IDs = append(res.IDs, id)
		}
	}

	if len(errs) > 0 {
		return res, fmt.Errorf("numidx: %d of %d ids failed: %w", len(errs), len(ids), errors.Join(errs...))
	}
	return res, nil
}

// resolveOne descends from the root to level 0.
func (x *Index) resolveOne(ctx context.Context, id uint64) (int64, bool, error) {
	top := x.header.Levels - 1

	entries := x.root
	i := page.Search(entries, id)
	if i < 0 {
		x.logger.LogNotFound(ctx, id, top)
		return 0, false, nil
	}
	pageIdx := uint64(i)

	for level := top - 1; level >= 0; level-- {
		parent, j := entries, i

		// Pages of one level are contiguous, so a right sibling in the parent
		// page bounds the read window.
		var limit uint64
		if j+1 < len(parent) {
			limit = parent[j+1].Offset
		}

		var err error
		entries, err = x.loadPage(ctx, level, pageIdx, parent[j], limit)
		if err != nil {
			return 0, false, err
		}

		i = page.Search(entries, id)
		if i < 0 {
			x.logger.LogNotFound(ctx, id, level)
			return 0, false, nil
		}
		pageIdx = pageIdx*uint64(x.header.LevelSize) + uint64(i)
	}

	if ent := entries[i]; ent.StartID == id {
		off, err := conv.Uint64ToInt64(ent.Offset)
		if err != nil {
			return 0, false, fmt.Errorf("%w: offset of id %d: %w", ErrCorrupt, id, err)
		}
		return off, true, nil
	}
	x.logger.LogNotFound(ctx, id, 0)
	return 0, false, nil
}

// loadPage returns page pageIdx of level, described by its parent entry ref.
// limit is the offset of the next page in the same level, or 0 if unknown.
func (x *Index) loadPage(ctx context.Context, level int, pageIdx uint64, ref page.Entry, limit uint64) ([]page.Entry, error) {
	c := x.caches[level]
	if p, ok := c.Get(ref.StartID); ok {
		return p, nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	// Another goroutine may have filled the page while we waited.
	if p, ok := c.Get(ref.StartID); ok {
		return p, nil
	}

	blob, err := x.ensureOpenLocked(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	entries, n, err := x.readPage(ctx, blob, level, pageIdx, ref, limit)
	x.opts.metricsCollector.RecordPageLoad(level, n, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	c.Set(ref.StartID, entries)
	return entries, nil
}

func (x *Index) readPage(ctx context.Context, blob blobstore.Blob, level int, pageIdx uint64, ref page.Entry, limit uint64) ([]page.Entry, int, error) {
	n := page.PageEntries(x.levelEntries[level], x.header.LevelSize, pageIdx)
	if n == 0 {
		return nil, 0, fmt.Errorf("%w: level %d has no page %d", ErrCorrupt, level, pageIdx)
	}

	size := uint64(page.MaxPageSize(n))
	if limit > ref.Offset && limit-ref.Offset < size {
		size = limit - ref.Offset
	}
	if ref.Offset >= uint64(blob.Size()) {
		return nil, 0, fmt.Errorf("%w: level %d page at %d beyond end of index", ErrCorrupt, level, ref.Offset)
	}
	if rem := uint64(blob.Size()) - ref.Offset; rem < size {
		size = rem
	}

	buf := make([]byte, size)
	read, err := blob.ReadAt(ctx, buf, int64(ref.Offset))
	if err != nil && !(errors.Is(err, io.EOF) && read > 0) {
		return nil, read, fmt.Errorf("%w: read level %d page at %d: %w", ErrCorrupt, level, ref.Offset, err)
	}

	entries, used, err := page.DecodePage(buf[:read], n)
	if err != nil {
		return nil, read, fmt.Errorf("level %d page at %d: %w", level, ref.Offset, err)
	}
	if entries[0].StartID != ref.StartID {
		return nil, used, fmt.Errorf("%w: level %d page at %d starts at id %d, parent says %d",
			ErrCorrupt, level, ref.Offset, entries[0].StartID, ref.StartID)
	}
	return entries, used, nil
}
