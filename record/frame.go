package record

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/numidx/blobstore"
	"github.com/hupe1980/numidx/internal/hash"
)

const (
	// maxHeaderSize bounds the id, compression and length fields of a frame.
	maxHeaderSize = 2*binary.MaxVarintLen64 + 1
	crcSize       = 4
	// readAhead is how many bytes ReadAt fetches before it knows the frame size.
	readAhead = 4096
)

type frameHeader struct {
	id         uint64
	comp       Compression
	payloadLen int
	size       int
}

func (h frameHeader) frameSize() int {
	return h.size + h.payloadLen + crcSize
}

// appendFrame appends one encoded frame to dst.
func appendFrame(dst []byte, id uint64, c Compression, payload []byte) []byte {
	start := len(dst)
	dst = binary.AppendUvarint(dst, id)
	dst = append(dst, byte(c))
	dst = binary.AppendUvarint(dst, uint64(len(payload)))
	dst = append(dst, payload...)
	return binary.LittleEndian.AppendUint32(dst, hash.CRC32C(dst[start:]))
}

// parseHeader decodes the frame header at the start of buf.
// It returns io.ErrUnexpectedEOF when buf ends inside the header.
func parseHeader(buf []byte) (frameHeader, error) {
	id, n := binary.Uvarint(buf)
	switch {
	case n == 0:
		return frameHeader{}, io.ErrUnexpectedEOF
	case n < 0:
		return frameHeader{}, fmt.Errorf("%w: id overflows uint64", ErrCorrupt)
	}
	if len(buf) <= n {
		return frameHeader{}, io.ErrUnexpectedEOF
	}
	comp := Compression(buf[n])
	if comp > CompressionZSTD {
		return frameHeader{}, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, comp)
	}
	plen, m := binary.Uvarint(buf[n+1:])
	switch {
	case m == 0:
		return frameHeader{}, io.ErrUnexpectedEOF
	case m < 0:
		return frameHeader{}, fmt.Errorf("%w: length overflows uint64", ErrCorrupt)
	}
	if plen > MaxPayloadSize {
		return frameHeader{}, fmt.Errorf("%w: payload length %d: %w", ErrCorrupt, plen, ErrTooLarge)
	}
	return frameHeader{id: id, comp: comp, payloadLen: int(plen), size: n + 1 + m}, nil
}

// verifyFrame checks the checksum of a complete frame and returns its encoded payload.
func verifyFrame(frame []byte, h frameHeader) ([]byte, error) {
	body := frame[:len(frame)-crcSize]
	want := binary.LittleEndian.Uint32(frame[len(frame)-crcSize:])
	if got := hash.CRC32C(body); got != want {
		return nil, fmt.Errorf("%w: id %d: got %08x, want %08x", ErrChecksum, h.id, got, want)
	}
	return body[h.size:], nil
}

// ReadAt decodes the frame that starts at off in blob.
func ReadAt(ctx context.Context, blob blobstore.Blob, off int64) (Record, error) {
	size := blob.Size()
	if off < 0 || off >= size {
		return Record{}, fmt.Errorf("%w: offset %d outside data of size %d", ErrCorrupt, off, size)
	}

	buf := make([]byte, min(int64(readAhead), size-off))
	if err := readFull(ctx, blob, buf, off); err != nil {
		return Record{}, err
	}

	h, err := parseHeader(buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return Record{}, fmt.Errorf("%w: truncated header at offset %d", ErrCorrupt, off)
	}
	if err != nil {
		return Record{}, err
	}

	total := h.frameSize()
	if int64(total) > size-off {
		return Record{}, fmt.Errorf("%w: frame at offset %d runs past end of data", ErrCorrupt, off)
	}
	if total > len(buf) {
		full := make([]byte, total)
		copy(full, buf)
		if err := readFull(ctx, blob, full[len(buf):], off+int64(len(buf))); err != nil {
			return Record{}, err
		}
		buf = full
	}

	enc, err := verifyFrame(buf[:total], h)
	if err != nil {
		return Record{}, err
	}
	payload, err := decompress(h.comp, enc)
	if err != nil {
		return Record{}, err
	}
	return Record{ID: h.id, Offset: off, Payload: payload}, nil
}

func readFull(ctx context.Context, blob blobstore.Blob, p []byte, off int64) error {
	n, err := blob.ReadAt(ctx, p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return err
}
