// Package page implements the on-disk encoding of the numeric index.
//
// # File Layout
//
//	┌──────────────────────────────────────────────────────────────┐
//	│ Header                                                       │
//	│   levels (uvarint) | levelSize (uvarint)                     │
//	│   dataCount (uint64 LE) | rootOffset (uint64 LE)             │
//	├──────────────────────────────────────────────────────────────┤
//	│ Level 0 pages     (entries point into the data file)         │
//	├──────────────────────────────────────────────────────────────┤
//	│ Level 1 pages     (entries point at level 0 pages)           │
//	├──────────────────────────────────────────────────────────────┤
//	│ ...                                                          │
//	├──────────────────────────────────────────────────────────────┤
//	│ Root page         (level levels-1, at rootOffset)            │
//	└──────────────────────────────────────────────────────────────┘
//
// # Page Encoding
//
// A page holds at most levelSize entries. The first entry is stored as an
// absolute (offset, id) pair; every following entry stores the difference to
// the entry before it in the same page:
//
//	offset₀ id₀ | offset₁-offset₀ id₁-id₀ | offset₂-offset₁ id₂-id₁ | ...
//
// All values are unsigned varints. Deltas must be strictly positive; the
// [Encoder] rejects anything else instead of writing a wrapped-around value.
//
// # Positional Addressing
//
// Pages are laid out in order, so entry j of page p in level k refers to page
// p*levelSize+j of level k-1. Combined with the per-level entry counts derived
// from the header (see [LevelEntries]) a reader always knows how many entries a
// page holds and never decodes beyond its end.
package page
