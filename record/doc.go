// Package record reads and writes the data file an index points into.
//
// A data file is a sequence of frames, one per record, in strictly increasing
// id order:
//
//	id uvarint | compression byte | payloadLen uvarint | payload | crc32c uint32 LE
//
// A record's offset is the byte position where its frame starts. The index
// stores these offsets, and ReadAt decodes a single frame at one of them.
//
// The index builder consumes records through Source and Reader, which lets it
// scan the same dataset twice without buffering it.
package record
