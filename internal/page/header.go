package page

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// MaxLevels bounds the level count accepted when decoding a header.
	// A level size of 2 and a full uint64 id space need 64 levels.
	MaxLevels = 64

	// MaxHeaderSize is the largest possible encoded header.
	MaxHeaderSize = 2*binary.MaxVarintLen64 + 8 + 8
)

var (
	// ErrCorrupt is returned when encoded index data cannot be decoded.
	ErrCorrupt = errors.New("corrupt index data")
	// ErrNotIncreasing is returned by the Encoder when an entry does not
	// strictly increase over its predecessor.
	ErrNotIncreasing = errors.New("entries must be strictly increasing")
)

// Header is the fixed preamble of an index file.
type Header struct {
	Levels     int
	LevelSize  int
	DataCount  uint64
	RootOffset uint64
}

// AppendBinary appends the encoded header to dst.
func (h Header) AppendBinary(dst []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(h.Levels))
	dst = binary.AppendUvarint(dst, uint64(h.LevelSize))
	dst = binary.LittleEndian.AppendUint64(dst, h.DataCount)
	dst = binary.LittleEndian.AppendUint64(dst, h.RootOffset)
	return dst
}

// RootOffsetPos returns the byte position of the RootOffset field within the
// encoded header. The builder seeks there to patch the placeholder.
func (h Header) RootOffsetPos() int64 {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(h.Levels))
	n += binary.PutUvarint(tmp[:], uint64(h.LevelSize))
	return int64(n + 8)
}

// Size returns the encoded length of the header.
func (h Header) Size() int64 {
	return h.RootOffsetPos() + 8
}

// DecodeHeader decodes a header from the start of buf and validates that its
// fields are mutually consistent. It returns the number of bytes consumed.
func DecodeHeader(buf []byte) (Header, int, error) {
	var h Header

	levels, n1 := binary.Uvarint(buf)
	if n1 <= 0 {
		return h, 0, fmt.Errorf("%w: header levels", ErrCorrupt)
	}
	levelSize, n2 := binary.Uvarint(buf[n1:])
	if n2 <= 0 {
		return h, 0, fmt.Errorf("%w: header level size", ErrCorrupt)
	}
	pos := n1 + n2
	if len(buf) < pos+16 {
		return h, 0, fmt.Errorf("%w: header truncated", ErrCorrupt)
	}

	if levels == 0 || levels > MaxLevels {
		return h, 0, fmt.Errorf("%w: invalid level count %d", ErrCorrupt, levels)
	}
	if levelSize < 2 || levelSize > 1<<30 {
		return h, 0, fmt.Errorf("%w: invalid level size %d", ErrCorrupt, levelSize)
	}

	h.Levels = int(levels)
	h.LevelSize = int(levelSize)
	h.DataCount = binary.LittleEndian.Uint64(buf[pos:])
	h.RootOffset = binary.LittleEndian.Uint64(buf[pos+8:])

	if want := LevelCount(h.DataCount, h.LevelSize); want != h.Levels {
		return h, 0, fmt.Errorf("%w: %d levels recorded for %d entries of size %d, expected %d",
			ErrCorrupt, h.Levels, h.DataCount, h.LevelSize, want)
	}
	if h.RootOffset < uint64(pos+16) {
		return h, 0, fmt.Errorf("%w: root offset %d inside header", ErrCorrupt, h.RootOffset)
	}

	return h, pos + 16, nil
}
