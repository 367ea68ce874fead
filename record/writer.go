package record

import (
	"bufio"
	"fmt"
	"io"

	"github.com/hupe1980/numidx/codec"
)

// Writer appends frames to a data file and tracks their offsets.
// It is not safe for concurrent use.
type Writer struct {
	bw     *bufio.Writer
	comp   Compression
	off    int64
	count  int
	lastID uint64
	buf    []byte
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCompression sets the payload compression for new frames.
func WithCompression(c Compression) WriterOption {
	return func(w *Writer) { w.comp = c }
}

// WithStartOffset sets the offset of the first frame, for appending to an existing file.
func WithStartOffset(off int64) WriterOption {
	return func(w *Writer) { w.off = off }
}

// NewWriter creates a Writer on top of w. Call Flush when done.
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	wr := &Writer{bw: bufio.NewWriterSize(w, 64<<10)}
	for _, opt := range opts {
		opt(wr)
	}
	return wr
}

// Append writes one record and returns the offset of its frame.
// Ids must be strictly increasing.
func (w *Writer) Append(id uint64, payload []byte) (int64, error) {
	if w.count > 0 && id <= w.lastID {
		return 0, fmt.Errorf("%w: %d after %d", ErrNotIncreasing, id, w.lastID)
	}
	if len(payload) > MaxPayloadSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(payload))
	}

	comp, enc, err := compress(w.comp, payload)
	if err != nil {
		return 0, err
	}

	w.buf = appendFrame(w.buf[:0], id, comp, enc)
	if _, err := w.bw.Write(w.buf); err != nil {
		return 0, err
	}

	off := w.off
	w.off += int64(len(w.buf))
	w.count++
	w.lastID = id
	return off, nil
}

// Encode marshals v with c and appends it as the payload of id.
func (w *Writer) Encode(c codec.Codec, id uint64, v any) (int64, error) {
	if c == nil {
		c = codec.Default
	}
	payload, err := c.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("record: encode id %d with %s: %w", id, c.Name(), err)
	}
	return w.Append(id, payload)
}

// Offset returns the offset the next frame will be written at.
func (w *Writer) Offset() int64 { return w.off }

// Count returns the number of records written.
func (w *Writer) Count() int { return w.count }

// Flush writes buffered frames to the underlying writer.
func (w *Writer) Flush() error { return w.bw.Flush() }

// Decode unmarshals the payload of r with c into v.
func (r Record) Decode(c codec.Codec, v any) error {
	if c == nil {
		c = codec.Default
	}
	if err := c.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("record: decode id %d with %s: %w", r.ID, c.Name(), err)
	}
	return nil
}
