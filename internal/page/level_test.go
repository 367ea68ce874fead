package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelCount(t *testing.T) {
	tests := []struct {
		dataCount uint64
		levelSize int
		want      int
	}{
		{0, 100, 1},
		{1, 100, 1},
		{99, 100, 1},
		{100, 100, 2},
		{9999, 100, 2},
		{10000, 100, 3},
		{10001, 100, 3},
		{250, 10, 3},
		{1 << 20, 2, 21},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelCount(tt.dataCount, tt.levelSize),
			"dataCount=%d levelSize=%d", tt.dataCount, tt.levelSize)
	}

	assert.Equal(t, 0, LevelCount(10, 1))
}

func TestLevelEntries(t *testing.T) {
	assert.Equal(t, []uint64{0}, LevelEntries(0, 100))
	assert.Equal(t, []uint64{100, 1}, LevelEntries(100, 100))
	assert.Equal(t, []uint64{10000, 100, 1}, LevelEntries(10000, 100))
	assert.Equal(t, []uint64{10001, 101, 2}, LevelEntries(10001, 100))
	assert.Equal(t, []uint64{250, 25, 3}, LevelEntries(250, 10))
	assert.Nil(t, LevelEntries(10, 0))
}

func TestLevelEntries_RootFitsOnePage(t *testing.T) {
	for _, size := range []int{2, 3, 10, 64, 100} {
		for _, n := range []uint64{0, 1, 2, 9, 10, 11, 99, 100, 101, 999, 1000, 12345} {
			entries := LevelEntries(n, size)
			root := entries[len(entries)-1]
			assert.LessOrEqual(t, root, uint64(size), "n=%d size=%d", n, size)
		}
	}
}

func TestPageEntries(t *testing.T) {
	assert.Equal(t, 10, PageEntries(25, 10, 0))
	assert.Equal(t, 10, PageEntries(25, 10, 1))
	assert.Equal(t, 5, PageEntries(25, 10, 2))
	assert.Equal(t, 0, PageEntries(25, 10, 3))
	assert.Equal(t, uint64(3), PageCount(25, 10))
	assert.Equal(t, uint64(0), PageCount(0, 10))
}
