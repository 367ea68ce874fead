package cache

import (
	"context"
	"encoding/binary"
	"hash/maphash"

	"github.com/hupe1980/numidx/internal/resource"
)

const numShards = 64

// BlockKey identifies an immutable block of a blob.
type BlockKey struct {
	// Path identifies the blob (e.g. object key or file name).
	Path string
	// Offset is the block index within the blob.
	Offset uint64
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key BlockKey) (b []byte, ok bool)
	// Set caches a block. The caller must treat b as immutable afterwards.
	Set(ctx context.Context, key BlockKey, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key BlockKey) bool)
	// Close releases any resources.
	Close() error
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}

// ShardedBlockCache is a sharded LRU BlockCache bounded in bytes.
// It distributes entries across 64 shards to reduce lock contention.
type ShardedBlockCache struct {
	shards [numShards]*LRU[BlockKey, []byte]
	seed   maphash.Seed
}

// NewShardedBlockCache creates a block cache holding at most capacity bytes.
// The capacity is divided evenly across all shards.
func NewShardedBlockCache(capacity int64, rc *resource.Controller) *ShardedBlockCache {
	shardCapacity := capacity / numShards
	if shardCapacity < 1 {
		shardCapacity = 1
	}

	s := &ShardedBlockCache{
		seed: maphash.MakeSeed(),
	}
	for i := range numShards {
		s.shards[i] = NewLRU[BlockKey, []byte](Options[[]byte]{
			MaxBytes:   shardCapacity,
			Sizer:      func(b []byte) int64 { return int64(len(b)) },
			Controller: rc,
		})
	}
	return s
}

func (s *ShardedBlockCache) shard(key BlockKey) *LRU[BlockKey, []byte] {
	var h maphash.Hash
	h.SetSeed(s.seed)
	_, _ = h.WriteString(key.Path)

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key.Offset)
	_, _ = h.Write(buf[:])

	return s.shards[h.Sum64()%numShards]
}

// Get returns a cached block.
func (s *ShardedBlockCache) Get(_ context.Context, key BlockKey) ([]byte, bool) {
	return s.shard(key).Get(key)
}

// Set caches a block.
func (s *ShardedBlockCache) Set(_ context.Context, key BlockKey, b []byte) {
	s.shard(key).Set(key, b)
}

// Invalidate removes entries matching the predicate from every shard.
func (s *ShardedBlockCache) Invalidate(predicate func(key BlockKey) bool) {
	for i := range numShards {
		s.shards[i].Invalidate(predicate)
	}
}

// Close drops all cached blocks.
func (s *ShardedBlockCache) Close() error {
	for i := range numShards {
		s.shards[i].Purge()
	}
	return nil
}

// Stats returns aggregated hit/miss statistics.
func (s *ShardedBlockCache) Stats() (hits, misses int64) {
	for i := range numShards {
		st := s.shards[i].Stats()
		hits += st.Hits
		misses += st.Misses
	}
	return hits, misses
}

// Size returns the total cached bytes across all shards.
func (s *ShardedBlockCache) Size() int64 {
	var total int64
	for i := range numShards {
		total += s.shards[i].Bytes()
	}
	return total
}
