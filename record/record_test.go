package record

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/numidx/blobstore"
	"github.com/hupe1980/numidx/codec"
	ifs "github.com/hupe1980/numidx/internal/fs"
	"github.com/hupe1980/numidx/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type written struct {
	id      uint64
	off     int64
	payload []byte
}

func writeRecords(t *testing.T, comp Compression, ids []uint64, payload func(i int) []byte) ([]byte, []written) {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf, WithCompression(comp))
	out := make([]written, 0, len(ids))
	for i, id := range ids {
		p := payload(i)
		off, err := w.Append(id, p)
		require.NoError(t, err)
		out = append(out, written{id: id, off: off, payload: p})
	}
	require.NoError(t, w.Flush())
	require.Equal(t, int64(buf.Len()), w.Offset())
	require.Equal(t, len(ids), w.Count())
	return buf.Bytes(), out
}

func repetitive(i int) []byte {
	return bytes.Repeat([]byte{byte('a' + i%26), 'x', 'y', 'z'}, 500+i)
}

func TestWriterScannerRoundTrip(t *testing.T) {
	ids := []uint64{1, 2, 3, 10, 200, 1 << 40}

	for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(comp.String(), func(t *testing.T) {
			data, want := writeRecords(t, comp, ids, repetitive)

			recs, err := readAll(NewScanner(bytes.NewReader(data)))
			require.NoError(t, err)
			require.Len(t, recs, len(want))
			for i, rec := range recs {
				assert.Equal(t, want[i].id, rec.ID)
				assert.Equal(t, want[i].off, rec.Offset)
				assert.Equal(t, want[i].payload, rec.Payload)
			}

			if comp != CompressionNone {
				raw := 0
				for _, w := range want {
					raw += len(w.payload)
				}
				assert.Less(t, len(data), raw/2, "repetitive payloads must compress")
			}
		})
	}
}

func TestWriterFallsBackForIncompressible(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	noise := make([]byte, 1000)
	rng.Read(noise)

	data, _ := writeRecords(t, CompressionLZ4, []uint64{1}, func(int) []byte { return noise })
	// id 1 is a single uvarint byte, the compression byte follows.
	assert.Equal(t, byte(CompressionNone), data[1])

	rec, err := NewScanner(bytes.NewReader(data)).ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, noise, rec.Payload)
}

func TestWriterRejectsNonIncreasingIDs(t *testing.T) {
	w := NewWriter(io.Discard)
	_, err := w.Append(5, nil)
	require.NoError(t, err)

	_, err = w.Append(5, nil)
	require.ErrorIs(t, err, ErrNotIncreasing)
	_, err = w.Append(4, nil)
	require.ErrorIs(t, err, ErrNotIncreasing)

	_, err = w.Append(6, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, w.Count())
}

func TestWriterStartOffset(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithStartOffset(100))
	off, err := w.Append(1, []byte("p"))
	require.NoError(t, err)
	assert.Equal(t, int64(100), off)

	require.NoError(t, w.Flush())
	rec, err := NewScanner(&buf, ScanFrom(100)).ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, int64(100), rec.Offset)
}

func TestScannerSkipPayloads(t *testing.T) {
	data, want := writeRecords(t, CompressionZSTD, []uint64{7, 8, 9}, repetitive)

	s := NewScanner(bytes.NewReader(data), SkipPayloads())
	recs, err := readAll(s)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, rec := range recs {
		assert.Equal(t, want[i].id, rec.ID)
		assert.Equal(t, want[i].off, rec.Offset)
		assert.Nil(t, rec.Payload)
	}
	assert.Equal(t, int64(len(data)), s.Offset())
}

func TestScannerDetectsCorruption(t *testing.T) {
	data, want := writeRecords(t, CompressionNone, []uint64{1, 2}, func(int) []byte { return []byte("payload") })

	t.Run("Checksum", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[want[1].off+5] ^= 0xff

		s := NewScanner(bytes.NewReader(bad))
		_, err := s.ReadRecord()
		require.NoError(t, err)
		_, err = s.ReadRecord()
		require.ErrorIs(t, err, ErrChecksum)

		_, again := s.ReadRecord()
		require.ErrorIs(t, again, ErrChecksum, "errors are sticky")
	})

	t.Run("Truncated", func(t *testing.T) {
		s := NewScanner(bytes.NewReader(data[:len(data)-2]))
		_, err := s.ReadRecord()
		require.NoError(t, err)
		_, err = s.ReadRecord()
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("UnknownCompression", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[1] = 9
		_, err := NewScanner(bytes.NewReader(bad)).ReadRecord()
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := NewScanner(bytes.NewReader(nil)).ReadRecord()
		require.ErrorIs(t, err, io.EOF)
	})
}

func TestReadAt(t *testing.T) {
	ctx := context.Background()
	big := bytes.Repeat([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, 2000)
	payloads := [][]byte{[]byte("first"), big, []byte("last")}

	for _, comp := range []Compression{CompressionNone, CompressionZSTD} {
		t.Run(comp.String(), func(t *testing.T) {
			data, want := writeRecords(t, comp, []uint64{11, 22, 33}, func(i int) []byte { return payloads[i] })

			store := blobstore.NewMemoryStore()
			require.NoError(t, store.Put(ctx, "data", data))
			blob, err := store.Open(ctx, "data")
			require.NoError(t, err)

			for _, w := range want {
				rec, err := ReadAt(ctx, blob, w.off)
				require.NoError(t, err)
				assert.Equal(t, w.id, rec.ID)
				assert.Equal(t, w.off, rec.Offset)
				assert.Equal(t, w.payload, rec.Payload)
			}

			_, err = ReadAt(ctx, blob, int64(len(data)))
			require.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestReadAtDetectsCorruption(t *testing.T) {
	ctx := context.Background()
	data, want := writeRecords(t, CompressionNone, []uint64{1, 2}, func(int) []byte { return []byte("abcdef") })

	store := blobstore.NewMemoryStore()
	bad := bytes.Clone(data)
	bad[want[0].off+4] ^= 0x01
	require.NoError(t, store.Put(ctx, "bad", bad))
	require.NoError(t, store.Put(ctx, "short", data[:len(data)-1]))

	blob, err := store.Open(ctx, "bad")
	require.NoError(t, err)
	_, err = ReadAt(ctx, blob, want[0].off)
	require.ErrorIs(t, err, ErrChecksum)

	blob, err = store.Open(ctx, "short")
	require.NoError(t, err)
	_, err = ReadAt(ctx, blob, want[1].off)
	require.ErrorIs(t, err, ErrCorrupt)
}

type event struct {
	Name  string `json:"name" msgpack:"name"`
	Count int    `json:"count" msgpack:"count"`
}

func TestEncodeDecode(t *testing.T) {
	for _, c := range []codec.Codec{codec.JSON{}, codec.MsgPack{}} {
		t.Run(c.Name(), func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf)
			_, err := w.Encode(c, 1, event{Name: "a", Count: 1})
			require.NoError(t, err)
			_, err = w.Encode(c, 2, event{Name: "b", Count: 2})
			require.NoError(t, err)
			require.NoError(t, w.Flush())

			recs, err := readAll(NewScanner(&buf))
			require.NoError(t, err)
			require.Len(t, recs, 2)

			var got event
			require.NoError(t, recs[1].Decode(c, &got))
			assert.Equal(t, event{Name: "b", Count: 2}, got)
		})
	}
}

func TestFileSource(t *testing.T) {
	ctx := context.Background()
	data, want := writeRecords(t, CompressionLZ4, []uint64{3, 4, 5}, repetitive)

	path := filepath.Join(t.TempDir(), "events.dat")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	src := FileSource{
		Path:        path,
		Controller:  resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 30}),
		SkipPayload: true,
	}

	// A source can be opened more than once.
	for range 2 {
		r, closer, err := src.Open(ctx)
		require.NoError(t, err)
		recs, err := readAll(r)
		require.NoError(t, err)
		require.NoError(t, closer.Close())

		require.Len(t, recs, len(want))
		for i, rec := range recs {
			assert.Equal(t, want[i].off, rec.Offset)
		}
	}

	faulty := ifs.NewFaultyFS(nil)
	faulty.AddRule("events.dat", ifs.Fault{FailOnOpen: true, FailAfterBytes: -1})
	_, _, err := FileSource{Path: path, FS: faulty}.Open(ctx)
	require.ErrorIs(t, err, ifs.ErrInjected)
}

func TestBlobSource(t *testing.T) {
	ctx := context.Background()
	data, want := writeRecords(t, CompressionNone, []uint64{1, 5, 9}, func(i int) []byte { return []byte{byte(i)} })

	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "data", data))

	r, closer, err := BlobSource{Store: store, Name: "data"}.Open(ctx)
	require.NoError(t, err)
	defer closer.Close()

	recs, err := readAll(r)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, rec := range recs {
		assert.Equal(t, want[i].id, rec.ID)
		assert.Equal(t, want[i].payload, rec.Payload)
	}

	_, _, err = BlobSource{Store: store, Name: "missing"}.Open(ctx)
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestSliceSource(t *testing.T) {
	src := SliceSource{{ID: 1, Offset: 0}, {ID: 2, Offset: 10}}
	r, closer, err := src.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, closer.Close())

	recs, err := readAll(r)
	require.NoError(t, err)
	assert.Equal(t, []Record(src), recs)
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCompression("brotli")
	require.Error(t, err)
	assert.Equal(t, "compression(7)", Compression(7).String())
}

func readAll(r Reader) ([]Record, error) {
	var out []Record
	for {
		rec, err := r.ReadRecord()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
