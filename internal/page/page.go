package page

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// EntrySize is the in-memory footprint of one decoded Entry in bytes.
const EntrySize = 16

// Entry is one index entry: the first id covered and where it lives.
//
// At level 0 Offset is the byte position of the record in the data file. At
// higher levels it is the byte position of a page in the level below.
type Entry struct {
	StartID uint64
	Offset  uint64
}

// MaxPageSize returns an upper bound for the encoded size of a page holding
// n entries.
func MaxPageSize(n int) int {
	return n * 2 * binary.MaxVarintLen64
}

// Encoder writes entries using the absolute-then-delta rule.
//
// The zero value is ready to use and starts a new page.
type Encoder struct {
	prev  Entry
	count int
}

// StartPage resets the encoder so the next entry is written absolute.
func (e *Encoder) StartPage() {
	e.prev = Entry{}
	e.count = 0
}

// Len returns the number of entries appended since the last StartPage.
func (e *Encoder) Len() int {
	return e.count
}

// Append appends the encoding of ent to dst.
func (e *Encoder) Append(dst []byte, ent Entry) ([]byte, error) {
	if e.count == 0 {
		dst = binary.AppendUvarint(dst, ent.Offset)
		dst = binary.AppendUvarint(dst, ent.StartID)
	} else {
		if ent.StartID <= e.prev.StartID {
			return dst, fmt.Errorf("%w: id %d after %d", ErrNotIncreasing, ent.StartID, e.prev.StartID)
		}
		if ent.Offset <= e.prev.Offset {
			return dst, fmt.Errorf("%w: offset %d after %d", ErrNotIncreasing, ent.Offset, e.prev.Offset)
		}
		dst = binary.AppendUvarint(dst, ent.Offset-e.prev.Offset)
		dst = binary.AppendUvarint(dst, ent.StartID-e.prev.StartID)
	}
	e.prev = ent
	e.count++
	return dst, nil
}

// AppendPage appends a complete page holding entries to dst.
func AppendPage(dst []byte, entries []Entry) ([]byte, error) {
	var enc Encoder
	var err error
	for _, ent := range entries {
		if dst, err = enc.Append(dst, ent); err != nil {
			return dst, err
		}
	}
	return dst, nil
}

// DecodePage decodes exactly n entries from the start of buf.
// It returns the entries and the number of bytes consumed.
func DecodePage(buf []byte, n int) ([]Entry, int, error) {
	entries := make([]Entry, 0, n)

	var cur Entry
	pos := 0
	for i := 0; i < n; i++ {
		off, k := binary.Uvarint(buf[pos:])
		if k <= 0 {
			return nil, 0, fmt.Errorf("%w: entry %d/%d offset", ErrCorrupt, i, n)
		}
		pos += k

		id, k := binary.Uvarint(buf[pos:])
		if k <= 0 {
			return nil, 0, fmt.Errorf("%w: entry %d/%d id", ErrCorrupt, i, n)
		}
		pos += k

		if i == 0 {
			cur = Entry{StartID: id, Offset: off}
		} else {
			next := Entry{StartID: cur.StartID + id, Offset: cur.Offset + off}
			if id == 0 || off == 0 || next.StartID < cur.StartID || next.Offset < cur.Offset {
				return nil, 0, fmt.Errorf("%w: entry %d/%d does not increase", ErrCorrupt, i, n)
			}
			cur = next
		}
		entries = append(entries, cur)
	}

	return entries, pos, nil
}

// Search returns the index of the last entry whose StartID is <= id, or -1 if
// id is smaller than the first entry.
func Search(entries []Entry, id uint64) int {
	return sort.Search(len(entries), func(i int) bool {
		return entries[i].StartID > id
	}) - 1
}
