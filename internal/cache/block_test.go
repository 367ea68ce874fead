package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardedBlockCache(t *testing.T) {
	ctx := context.Background()
	c := NewShardedBlockCache(1<<20, nil)

	k1 := BlockKey{Path: "index.idx", Offset: 0}
	k2 := BlockKey{Path: "index.idx", Offset: 1}
	k3 := BlockKey{Path: "data.dat", Offset: 0}

	c.Set(ctx, k1, []byte("aaaa"))
	c.Set(ctx, k2, []byte("bb"))
	c.Set(ctx, k3, []byte("c"))

	b, ok := c.Get(ctx, k1)
	require.True(t, ok)
	assert.Equal(t, "aaaa", string(b))
	assert.Equal(t, int64(7), c.Size())

	c.Invalidate(func(k BlockKey) bool { return k.Path == "index.idx" })

	_, ok = c.Get(ctx, k2)
	assert.False(t, ok)
	_, ok = c.Get(ctx, k3)
	assert.True(t, ok)

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)

	require.NoError(t, c.Close())
	assert.Equal(t, int64(0), c.Size())
}
