package minio

import (
	"context"
	"io"
	"os"
	"strconv"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/numidx"
	"github.com/hupe1980/numidx/record"
	"github.com/hupe1980/numidx/testutil"
)

// integrationStore dials the server named by MINIO_ENDPOINT or skips the test.
func integrationStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MinIO integration test in short mode")
	}
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set")
	}
	secure, _ := strconv.ParseBool(os.Getenv("MINIO_SECURE"))
	bucket := os.Getenv("MINIO_BUCKET")
	if bucket == "" {
		bucket = "numidx-test"
	}

	store, err := Dial(endpoint, os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), secure, bucket, t.Name()+"/")
	require.NoError(t, err)

	ctx := context.Background()
	exists, err := store.client.BucketExists(ctx, bucket)
	if err != nil {
		t.Skipf("MinIO not reachable: %v", err)
	}
	if !exists {
		require.NoError(t, store.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}
	return store
}

func TestMinioStore_Integration(t *testing.T) {
	store := integrationStore(t)
	ctx := context.Background()

	data := []byte("numidx on minio")
	require.NoError(t, store.Put(ctx, "blob.bin", data))
	t.Cleanup(func() { _ = store.Delete(ctx, "blob.bin") })

	blob, err := store.Open(ctx, "blob.bin")
	require.NoError(t, err)
	defer blob.Close()
	assert.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 10)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(buf[:n]))

	rc, err := blob.ReadRange(ctx, 0, 6)
	require.NoError(t, err)
	head, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "numidx", string(head))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "blob.bin")

	require.NoError(t, store.Delete(ctx, "blob.bin"))
	_, err = store.Open(ctx, "blob.bin")
	assert.Error(t, err)
}

func TestMinioStore_BuildAndResolve(t *testing.T) {
	store := integrationStore(t)
	ctx := context.Background()

	ds := testutil.NewRNG(3).Dataset(2_000, testutil.DatasetOptions{MaxGap: 3, PayloadSize: 24})
	raw, err := ds.Bytes(record.CompressionZSTD)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "events.dat", raw))
	t.Cleanup(func() {
		_ = store.Delete(ctx, "events.dat")
		_ = store.Delete(ctx, "events.idx")
	})

	src := record.BlobSource{Store: store, Name: "events.dat", SkipPayload: true}
	_, err = numidx.NewBuilder().LevelSize(32).BuildToStore(ctx, src, store, "events.idx")
	require.NoError(t, err)

	idx, err := numidx.Open(ctx, store, "events.idx", numidx.WithBlockCache(1<<20))
	require.NoError(t, err)
	defer idx.Close()

	offsets, err := idx.Resolve(ctx, ds.IDs)
	require.NoError(t, err)
	assert.Equal(t, ds.Offsets, offsets)

	data, err := store.Open(ctx, "events.dat")
	require.NoError(t, err)
	defer data.Close()

	rec, err := idx.FetchOne(ctx, data, ds.IDs[1_234])
	require.NoError(t, err)
	assert.Equal(t, ds.Payloads[1_234], rec.Payload)
}
