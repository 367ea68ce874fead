package page

// LevelCount returns the number of levels needed so that the top level fits
// into a single page of levelSize entries.
//
// It starts at one and adds a level for every nonzero quotient while dividing
// dataCount by levelSize:
//
//	LevelCount(0, 100)     == 1
//	LevelCount(100, 100)   == 2
//	LevelCount(10000, 100) == 3
func LevelCount(dataCount uint64, levelSize int) int {
	if levelSize < 2 {
		return 0
	}

	levels := 1
	for tmp := dataCount; tmp/uint64(levelSize) > 0; tmp /= uint64(levelSize) {
		levels++
	}
	return levels
}

// LevelEntries returns the number of entries stored in each level, bottom
// first. Level 0 has one entry per record; every level above has one entry per
// page of the level below. The last element is the root entry count.
func LevelEntries(dataCount uint64, levelSize int) []uint64 {
	levels := LevelCount(dataCount, levelSize)
	if levels == 0 {
		return nil
	}

	entries := make([]uint64, levels)
	entries[0] = dataCount
	for k := 1; k < levels; k++ {
		entries[k] = PageCount(entries[k-1], levelSize)
	}
	return entries
}

// PageCount returns ceil(entries / levelSize).
func PageCount(entries uint64, levelSize int) uint64 {
	size := uint64(levelSize)
	return (entries + size - 1) / size
}

// PageEntries returns the number of entries held by page pageIndex of a level
// with levelEntries entries. It returns 0 for pages past the end of the level.
func PageEntries(levelEntries uint64, levelSize int, pageIndex uint64) int {
	first := pageIndex * uint64(levelSize)
	if first >= levelEntries {
		return 0
	}
	if n := levelEntries - first; n < uint64(levelSize) {
		return int(n)
	}
	return levelSize
}
