package testutil

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/numidx/record"
)

func TestDataset(t *testing.T) {
	rng := NewRNG(4711)

	ds := rng.Dataset(100, DatasetOptions{FirstID: 10, MaxGap: 4, PayloadSize: 8})

	require.Equal(t, 100, ds.Len())
	assert.Equal(t, uint64(10), ds.IDs[0])
	for i := 1; i < ds.Len(); i++ {
		gap := ds.IDs[i] - ds.IDs[i-1]
		assert.GreaterOrEqual(t, gap, uint64(1))
		assert.LessOrEqual(t, gap, uint64(4))
		assert.Len(t, ds.Payloads[i], 8)
	}
}

func TestDatasetWrite(t *testing.T) {
	rng := NewRNG(4711)
	ds := rng.Dataset(50, DatasetOptions{MaxGap: 3, PayloadSize: 16})

	var buf bytes.Buffer
	require.NoError(t, ds.Write(&buf, record.CompressionNone))
	require.Len(t, ds.Offsets, 50)

	sc := record.NewScanner(&buf)
	for i := range 50 {
		rec, err := sc.ReadRecord()
		require.NoError(t, err)
		assert.Equal(t, ds.IDs[i], rec.ID)
		assert.Equal(t, ds.Offsets[i], rec.Offset)
		assert.Equal(t, ds.Payloads[i], rec.Payload)
	}
	_, err := sc.ReadRecord()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSynthesize(t *testing.T) {
	ds := NewRNG(1).Dataset(5, DatasetOptions{}).Synthesize(10)

	assert.Equal(t, []int64{0, 10, 20, 30, 40}, ds.Offsets)

	off, ok := ds.OffsetOf(ds.IDs[3])
	assert.True(t, ok)
	assert.Equal(t, int64(30), off)

	_, ok = ds.OffsetOf(ds.IDs[4] + 1)
	assert.False(t, ok)

	r, closer, err := ds.Source().Open(context.Background())
	require.NoError(t, err)
	defer closer.Close()
	rec, err := r.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, ds.IDs[0], rec.ID)
}

func TestQueries(t *testing.T) {
	rng := NewRNG(4711)
	ds := rng.Dataset(200, DatasetOptions{MaxGap: 10})

	hits := rng.Queries(ds, 500, 0)
	for _, id := range hits {
		assert.True(t, ds.Contains(id))
	}

	misses := rng.Queries(ds, 500, 1)
	for _, id := range misses {
		assert.False(t, ds.Contains(id))
	}
}

func TestZipfQueries(t *testing.T) {
	rng := NewRNG(4711)
	ds := rng.Dataset(100, DatasetOptions{})

	ids := rng.ZipfQueries(ds, 1000, 1.5)

	counts := make(map[uint64]int)
	for _, id := range ids {
		counts[id]++
	}
	assert.Greater(t, counts[ds.IDs[0]], counts[ds.IDs[50]])
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	a := rng.Uint64()
	rng.Reset()
	assert.Equal(t, a, rng.Uint64())
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestShuffle(t *testing.T) {
	rng := NewRNG(4711)
	ids := []uint64{1, 2, 3, 4, 5, 6, 7, 8}

	out := rng.Shuffle(ids)

	assert.ElementsMatch(t, ids, out)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8}, ids)
}
