package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage_RoundTripIsIdempotent(t *testing.T) {
	entries := []Entry{
		{StartID: 7, Offset: 1024},
		{StartID: 8, Offset: 1090},
		{StartID: 300, Offset: 1091},
		{StartID: 1 << 40, Offset: 1 << 33},
	}

	encoded, err := AppendPage(nil, entries)
	require.NoError(t, err)

	decoded, n, err := DecodePage(encoded, len(entries))
	require.NoError(t, err)
	assert.Equal(t, len(encoded), n)
	assert.Equal(t, entries, decoded)

	reencoded, err := AppendPage(nil, decoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, reencoded)
}

func TestPage_FirstEntryAbsoluteThenDeltas(t *testing.T) {
	encoded, err := AppendPage(nil, []Entry{
		{StartID: 5, Offset: 100},
		{StartID: 6, Offset: 110},
		{StartID: 9, Offset: 125},
	})
	require.NoError(t, err)

	// offset, id pairs; every value fits one varint byte.
	assert.Equal(t, []byte{100, 5, 10, 1, 15, 3}, encoded)
}

func TestPage_DecodeStopsAtRequestedCount(t *testing.T) {
	first, err := AppendPage(nil, []Entry{{StartID: 1, Offset: 10}, {StartID: 2, Offset: 20}})
	require.NoError(t, err)
	both, err := AppendPage(first, []Entry{{StartID: 3, Offset: 30}})
	require.NoError(t, err)

	decoded, n, err := DecodePage(both, 2)
	require.NoError(t, err)
	assert.Equal(t, len(first), n)
	assert.Len(t, decoded, 2)

	// The second page starts absolute again.
	next, _, err := DecodePage(both[n:], 1)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{StartID: 3, Offset: 30}}, next)
}

func TestPage_EncoderRejectsNonIncreasing(t *testing.T) {
	var enc Encoder
	buf, err := enc.Append(nil, Entry{StartID: 10, Offset: 100})
	require.NoError(t, err)

	_, err = enc.Append(buf, Entry{StartID: 10, Offset: 200})
	assert.ErrorIs(t, err, ErrNotIncreasing)

	_, err = enc.Append(buf, Entry{StartID: 11, Offset: 50})
	assert.ErrorIs(t, err, ErrNotIncreasing)

	enc.StartPage()
	_, err = enc.Append(nil, Entry{StartID: 1, Offset: 1})
	assert.NoError(t, err, "a new page starts absolute")
	assert.Equal(t, 1, enc.Len())
}

func TestPage_DecodeTruncated(t *testing.T) {
	encoded, err := AppendPage(nil, []Entry{{StartID: 1, Offset: 300}, {StartID: 2, Offset: 400}})
	require.NoError(t, err)

	_, _, err = DecodePage(encoded[:len(encoded)-1], 2)
	assert.ErrorIs(t, err, ErrCorrupt)

	_, _, err = DecodePage(nil, 1)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestPage_DecodeRejectsZeroDelta(t *testing.T) {
	_, _, err := DecodePage([]byte{10, 1, 0, 1}, 2)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSearch(t *testing.T) {
	entries := []Entry{{StartID: 10}, {StartID: 20}, {StartID: 30}}

	tests := []struct {
		id   uint64
		want int
	}{
		{id: 0, want: -1},
		{id: 9, want: -1},
		{id: 10, want: 0},
		{id: 19, want: 0},
		{id: 20, want: 1},
		{id: 30, want: 2},
		{id: 1000, want: 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Search(entries, tt.id), "id %d", tt.id)
	}

	assert.Equal(t, -1, Search(nil, 5))
}

func TestHeader_RoundTrip(t *testing.T) {
	h := Header{Levels: 3, LevelSize: 100, DataCount: 10000, RootOffset: 4242}

	buf := h.AppendBinary(nil)
	assert.Equal(t, h.Size(), int64(len(buf)))

	got, n, err := DecodeHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, h, got)
}

func TestHeader_RootOffsetPos(t *testing.T) {
	h := Header{Levels: 2, LevelSize: 300, DataCount: 300}
	buf := h.AppendBinary(nil)

	// levels: 1 byte, levelSize 300: 2 bytes, dataCount: 8 bytes.
	assert.Equal(t, int64(11), h.RootOffsetPos())
	assert.Len(t, buf, 19)
}

func TestHeader_Validation(t *testing.T) {
	tests := []struct {
		name string
		h    Header
	}{
		{"zero levels", Header{Levels: 0, LevelSize: 10, RootOffset: 100}},
		{"tiny level size", Header{Levels: 1, LevelSize: 1, RootOffset: 100}},
		{"inconsistent levels", Header{Levels: 1, LevelSize: 10, DataCount: 250, RootOffset: 100}},
		{"root inside header", Header{Levels: 1, LevelSize: 10, DataCount: 5, RootOffset: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeHeader(tt.h.AppendBinary(nil))
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}

	_, _, err := DecodeHeader([]byte{1, 10, 0})
	assert.ErrorIs(t, err, ErrCorrupt)
}
