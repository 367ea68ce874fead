package record

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrCorrupt is returned when a frame cannot be decoded.
	ErrCorrupt = errors.New("record: corrupt frame")
	// ErrChecksum is returned when a frame's checksum does not match its contents.
	ErrChecksum = errors.New("record: checksum mismatch")
	// ErrNotIncreasing is returned when a writer is given an id that is not
	// strictly greater than the previous one.
	ErrNotIncreasing = errors.New("record: id not strictly increasing")
	// ErrTooLarge is returned when a payload exceeds MaxPayloadSize.
	ErrTooLarge = errors.New("record: payload too large")
)

// MaxPayloadSize bounds the encoded payload of one frame.
const MaxPayloadSize = 64 << 20

// Record is one entry of a data file.
type Record struct {
	// ID is the record's numeric key.
	ID uint64
	// Offset is the byte position of the record's frame in the data file.
	Offset int64
	// Payload is the decoded payload. Nil when the reader skips payloads.
	Payload []byte
}

// Reader yields records in file order. ReadRecord returns io.EOF at the end.
type Reader interface {
	ReadRecord() (Record, error)
}

// Source opens a fresh Reader positioned at the first record.
// The index builder opens its source twice.
type Source interface {
	Open(ctx context.Context) (Reader, io.Closer, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Reader, io.Closer, error)

// Open calls f.
func (f SourceFunc) Open(ctx context.Context) (Reader, io.Closer, error) {
	return f(ctx)
}

// SliceSource is a Source over records held in memory.
type SliceSource []Record

// Open returns a Reader over a snapshot of the slice.
func (s SliceSource) Open(ctx context.Context) (Reader, io.Closer, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return &sliceReader{recs: s}, nopCloser{}, nil
}

type sliceReader struct {
	recs []Record
	pos  int
}

func (r *sliceReader) ReadRecord() (Record, error) {
	if r.pos >= len(r.recs) {
		return Record{}, io.EOF
	}
	rec := r.recs[r.pos]
	r.pos++
	return rec, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
