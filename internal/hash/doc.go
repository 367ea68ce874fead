// Package hash provides the checksum used by record frames.
//
// Every frame of a data file ends with a CRC32-Castagnoli over its header and
// payload. Go's crc32 package uses SSE4.2 or the ARM CRC extension when
// available.
//
//	sum := hash.CRC32C(frame)
//
//	h := hash.NewCRC32C()
//	h.Write(header)
//	h.Write(payload)
//	sum := h.Sum32()
package hash
