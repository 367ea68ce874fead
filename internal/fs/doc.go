// Package fs provides filesystem abstractions for testability and fault injection.
//
//   - [File]: an open file with read/write/seek/sync capabilities
//   - [FileSystem]: open, remove, rename, stat, mkdir, temp files
//
// Production code uses [Default] ([LocalFS]). Tests inject [FaultyFS] to
// simulate failing opens, short writes or failing syncs when building an
// index:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".idx", fs.Fault{FailOnOpen: true})
//
// Operations take no context.Context; local filesystem calls are not
// interruptible. Remote storage goes through blobstore, which does.
package fs
