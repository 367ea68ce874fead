package numidx

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/numidx/blobstore"
	"github.com/hupe1980/numidx/record"
)

// Fetch resolves ids and reads the matching records from the data blob.
//
// Records are returned in input order. Ids that are not in the index are
// skipped, as in Resolve. Reads run in parallel, bounded by the worker limit
// of the resource controller, or GOMAXPROCS without one. The controller's
// limit is shared by every Fetch using it.
func (x *Index) Fetch(ctx context.Context, data blobstore.Blob, ids []uint64) ([]record.Record, error) {
	res, lookupErr := x.Lookup(ctx, ids)
	if res == nil {
		return nil, lookupErr
	}

	recs := make([]record.Record, res.Len())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.fetchWorkers())
	for i, off := range res.Offsets {
		id := res.IDs[i]
		g.Go(func() error {
			if err := x.opts.resource.AcquireWorker(gctx); err != nil {
				return err
			}
			defer x.opts.resource.ReleaseWorker()

			rec, err := record.ReadAt(gctx, data, off)
			if err != nil {
				return fmt.Errorf("numidx: fetch id %d at %d: %w", id, off, err)
			}
			if rec.ID != id {
				return fmt.Errorf("%w: record at %d has id %d, index says %d", ErrCorrupt, off, rec.ID, id)
			}
			recs[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return recs, lookupErr
}

// FetchOne reads the record for a single id. It returns ErrNotFound if the id
// is not in the index.
func (x *Index) FetchOne(ctx context.Context, data blobstore.Blob, id uint64) (record.Record, error) {
	recs, err := x.Fetch(ctx, data, []uint64{id})
	if err != nil {
		return record.Record{}, err
	}
	if len(recs) == 0 {
		return record.Record{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return recs[0], nil
}

func (x *Index) fetchWorkers() int {
	if x.opts.resource == nil {
		return runtime.GOMAXPROCS(0)
	}
	return x.opts.resource.Workers()
}
