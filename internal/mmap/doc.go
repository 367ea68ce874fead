// Package mmap provides read-only memory-mapped files.
//
// blobstore.LocalStore maps index and data files so that page reads are plain
// copies out of the page cache of the operating system:
//
//	m, err := mmap.Open("nodes.idx")
//	if err != nil { ... }
//	defer m.Close()
//
//	_ = m.Advise(mmap.AccessRandom)
//	n, err := m.ReadAt(buf, off)
//
// Unix uses mmap(2) and madvise(2). Windows uses CreateFileMapping and
// MapViewOfFile; Advise is a no-op there.
//
// A Mapping is safe for concurrent reads. Close is idempotent, but callers
// must not touch slices returned by Bytes after Close returns.
package mmap
