package record

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Scanner reads frames sequentially from an io.Reader. It implements Reader.
type Scanner struct {
	r           *bufio.Reader
	off         int64
	skipPayload bool
	buf         []byte
	err         error
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// SkipPayloads makes the scanner verify frames without decoding their payloads.
// Records are returned with a nil Payload.
func SkipPayloads() ScannerOption {
	return func(s *Scanner) { s.skipPayload = true }
}

// ScanFrom sets the offset of the first byte the reader yields.
func ScanFrom(off int64) ScannerOption {
	return func(s *Scanner) { s.off = off }
}

// NewScanner creates a Scanner over r.
func NewScanner(r io.Reader, opts ...ScannerOption) *Scanner {
	s := &Scanner{r: bufio.NewReaderSize(r, 64<<10)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Offset returns the offset of the next frame.
func (s *Scanner) Offset() int64 { return s.off }

// ReadRecord returns the next record, or io.EOF after the last one.
// Once it returns an error, every later call returns the same error.
func (s *Scanner) ReadRecord() (Record, error) {
	if s.err != nil {
		return Record{}, s.err
	}
	rec, err := s.next()
	if err != nil {
		s.err = err
	}
	return rec, err
}

func (s *Scanner) next() (Record, error) {
	peek, err := s.r.Peek(maxHeaderSize)
	if len(peek) == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, err
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return Record{}, err
	}

	h, err := parseHeader(peek)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return Record{}, fmt.Errorf("%w: truncated header at offset %d", ErrCorrupt, s.off)
	}
	if err != nil {
		return Record{}, fmt.Errorf("offset %d: %w", s.off, err)
	}

	total := h.frameSize()
	if cap(s.buf) < total {
		s.buf = make([]byte, total)
	}
	frame := s.buf[:total]
	if _, err := io.ReadFull(s.r, frame); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, fmt.Errorf("%w: truncated frame at offset %d", ErrCorrupt, s.off)
		}
		return Record{}, err
	}

	enc, err := verifyFrame(frame, h)
	if err != nil {
		return Record{}, fmt.Errorf("offset %d: %w", s.off, err)
	}

	rec := Record{ID: h.id, Offset: s.off}
	if !s.skipPayload {
		payload, err := decompress(h.comp, enc)
		if err != nil {
			return Record{}, fmt.Errorf("offset %d: %w", s.off, err)
		}
		if h.comp == CompressionNone {
			payload = bytes.Clone(payload)
		}
		rec.Payload = payload
	}

	s.off += int64(total)
	return rec, nil
}
