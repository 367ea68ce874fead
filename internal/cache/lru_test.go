package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/numidx/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_BoundedByEntries(t *testing.T) {
	c := NewLRU[uint64, []int](Options[[]int]{MaxEntries: 3})

	for i := range uint64(10) {
		assert.True(t, c.Set(i, []int{int(i)}))
		assert.LessOrEqual(t, c.Len(), 3)
	}

	assert.Equal(t, 3, c.Len())
	for i := range uint64(7) {
		_, ok := c.Get(i)
		assert.False(t, ok, "key %d should have been evicted", i)
	}
	for i := uint64(7); i < 10; i++ {
		v, ok := c.Get(i)
		require.True(t, ok)
		assert.Equal(t, []int{int(i)}, v)
	}
	assert.Equal(t, int64(7), c.Stats().Evictions)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string, int](Options[int]{MaxEntries: 2})
	c.Set("a", 1)
	c.Set("b", 2)

	_, ok := c.Get("a") // a is now most recent
	require.True(t, ok)

	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRU_BoundedByBytes(t *testing.T) {
	c := NewLRU[int, []byte](Options[[]byte]{
		MaxBytes: 50,
		Sizer:    func(b []byte) int64 { return int64(len(b)) },
	})

	// Larger than the whole budget: never cached.
	assert.False(t, c.Set(1, make([]byte, 60)))
	_, ok := c.Get(1)
	assert.False(t, ok)

	c.Set(1, make([]byte, 20))
	c.Set(2, make([]byte, 20))
	assert.Equal(t, int64(40), c.Bytes())

	c.Set(3, make([]byte, 20))
	assert.Equal(t, int64(40), c.Bytes())
	_, ok = c.Get(1)
	assert.False(t, ok)

	// Update shrinks in place.
	c.Set(3, make([]byte, 5))
	assert.Equal(t, int64(25), c.Bytes())
}

func TestLRU_ControllerLimitsAdmission(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 10})
	c := NewLRU[int, []byte](Options[[]byte]{
		Sizer:      func(b []byte) int64 { return int64(len(b)) },
		Controller: rc,
	})

	assert.True(t, c.Set(1, make([]byte, 8)))
	assert.Equal(t, int64(8), rc.MemoryUsage())

	// Growth beyond the global budget keeps the old value.
	assert.False(t, c.Set(1, make([]byte, 12)))
	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Len(t, v, 8)

	assert.False(t, c.Set(2, make([]byte, 4)))

	c.Purge()
	assert.Equal(t, int64(0), rc.MemoryUsage())
	assert.Equal(t, 0, c.Len())
}

func TestLRU_StatsAndInvalidate(t *testing.T) {
	c := NewLRU[string, int](Options[int]{})
	c.Set("seg1/a", 1)
	c.Set("seg1/b", 2)
	c.Set("seg2/a", 3)

	c.Get("seg1/a")
	c.Get("missing")

	st := c.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, 3, st.Entries)

	c.Invalidate(func(k string) bool { return k[:4] == "seg1" })
	assert.Equal(t, 1, c.Len())

	c.Invalidate(func(k string) bool { return k == "seg2/a" })
	assert.Equal(t, 0, c.Len())
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int, string](Options[string]{MaxEntries: 64})

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := range 1000 {
				k := (g*1000 + i) % 200
				if _, ok := c.Get(k); !ok {
					c.Set(k, fmt.Sprint(k))
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 64)
}
