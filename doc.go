// Package numidx provides an on-disk numeric paged index that maps strictly
// increasing record ids to byte offsets in a companion data file.
//
// The index is built once, offline, and then queried repeatedly with bounded
// memory and I/O. It is a multi-level search structure of delta-encoded pages:
// level 0 holds one entry per record, every level above holds one entry per
// page of the level below, and the single page at the top is the root.
//
// # Quick Start
//
// Build an index for a framed data file:
//
//	ctx := context.Background()
//	stats, err := numidx.NewBuilder().
//	    LevelSize(64).
//	    BuildFile(ctx, "events.dat", "events.idx")
//
// Open it and resolve ids:
//
//	idx, err := numidx.OpenFile(ctx, "events.idx")
//	defer idx.Close()
//
//	offsets, err := idx.Resolve(ctx, []uint64{42, 7, 1000})
//
// Remote stores work the same way:
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("indexes/"))
//	idx, _ := numidx.Open(ctx, store, "events.idx", numidx.WithBlockCache(64<<20))
//
// # File Format
//
//	header:
//	  levels       uvarint
//	  levelSize    uvarint
//	  dataCount    uint64 little-endian
//	  rootOffset   uint64 little-endian
//	pages, level 0 first:
//	  first entry  offset uvarint, id uvarint
//	  next entries offset delta uvarint, id delta uvarint
//
// Entry j of page p in level k refers to page p*levelSize+j of level k-1.
//
// # Caching
//
// The root is decoded at open time and read without locks. Every lower level
// has its own LRU page cache keyed by the page's first id, bounded by
// WithPageCacheCapacity and optionally WithPageCacheBytes. A cache miss takes a
// single index lock that covers reopening the blob, reading the page and
// inserting it, so concurrent misses on one page read it once.
//
// # Errors
//
// Ids that are not in the index are omitted from Resolve and reported in
// Result.Missing by Lookup. A page that cannot be read or decoded fails only
// the ids that need it; the returned error wraps ErrCorrupt. An index blob that
// cannot be reopened aborts the batch with an *OpenError.
package numidx
