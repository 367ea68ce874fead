package record

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how a frame payload is encoded.
type Compression uint8

const (
	// CompressionNone stores the payload as is.
	CompressionNone Compression = 0
	// CompressionLZ4 stores an LZ4 block prefixed with the raw length as uvarint.
	CompressionLZ4 Compression = 1
	// CompressionZSTD stores a zstd frame.
	CompressionZSTD Compression = 2
)

// String returns the compression name.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name as returned by String.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("record: unknown compression %q", name)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxPayloadSize))
	return dec
}

// compress encodes data with c. It falls back to CompressionNone when
// compression does not save at least a tenth of the input.
func compress(c Compression, data []byte) (Compression, []byte, error) {
	if c == CompressionNone || len(data) == 0 {
		return CompressionNone, data, nil
	}

	var out []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, binary.MaxVarintLen64+lz4.CompressBlockBound(len(data)))
		hdr := binary.PutUvarint(buf, uint64(len(data)))
		n, err := lz4.CompressBlock(data, buf[hdr:], nil)
		if err != nil {
			return 0, nil, err
		}
		if n == 0 {
			return CompressionNone, data, nil
		}
		out = buf[:hdr+n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		out = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return 0, nil, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, c)
	}

	if float64(len(out)) > float64(len(data))*0.9 {
		return CompressionNone, data, nil
	}
	return c, out, nil
}

// decompress reverses compress.
func decompress(c Compression, data []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		rawLen, n := binary.Uvarint(data)
		if n <= 0 || rawLen > MaxPayloadSize {
			return nil, fmt.Errorf("%w: bad lz4 length", ErrCorrupt)
		}
		out := make([]byte, rawLen)
		m, err := lz4.UncompressBlock(data[n:], out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
		}
		if uint64(m) != rawLen {
			return nil, fmt.Errorf("%w: lz4 size mismatch", ErrCorrupt)
		}
		return out, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, c)
	}
}
