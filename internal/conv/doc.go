// Package conv provides checked integer conversions for values read from
// index and data files.
//
// Offsets are stored unsigned on disk but exposed as int64 to match io.ReaderAt.
// Converting them is where a corrupt file can turn into a negative offset, so
// every such conversion goes through this package.
package conv
