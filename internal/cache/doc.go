// Package cache provides the bounded LRU caches used by the index.
//
// # Page Cache
//
// [LRU] is a generic least-recently-used cache. It is bounded by an entry
// count and, optionally, by a byte budget computed through an injectable
// Sizer. The numeric index keeps one LRU per non-root level, keyed by the
// first id of each page.
//
// # Block Cache
//
// [ShardedBlockCache] stores immutable byte blocks of remote blobs. It spreads
// keys over 64 LRU shards to reduce lock contention and is used by
// blobstore.CachingStore.
//
// Both caches can be attached to a resource.Controller so that cached bytes
// count against a global memory limit. When the controller refuses an
// allocation the value is simply not cached.
package cache
