package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	assert.NoError(t, lfs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "test.idx")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	_, err = f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.NoError(t, f.Sync())

	info, err := f.Stat()
	assert.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
	assert.NoError(t, f.Close())

	tmpFile, err := lfs.CreateTemp(dir, "build-*.idx")
	require.NoError(t, err)
	assert.Contains(t, tmpFile.Name(), "build-")
	require.NoError(t, tmpFile.Close())

	newPath := filepath.Join(dir, "renamed.idx")
	assert.NoError(t, lfs.Rename(fpath, newPath))
	info2, err := lfs.Stat(newPath)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), info2.Size())

	assert.NoError(t, lfs.Remove(newPath))
	_, err = lfs.Stat(newPath)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS_WriteLimit(t *testing.T) {
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("faulty", Fault{FailAfterBytes: 5})

	fpath := filepath.Join(t.TempDir(), "faulty.idx")
	f, err := ffs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	n, err := f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = f.Write([]byte("!"))
	assert.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 0, n)

	assert.Equal(t, int64(5), ffs.Written())
}

func TestFaultyFS_FailOnOpen(t *testing.T) {
	ffs := NewFaultyFS(nil)
	ffs.AddRule(".idx", Fault{FailOnOpen: true})

	_, err := ffs.OpenFile(filepath.Join(t.TempDir(), "nodes.idx"), os.O_CREATE|os.O_RDWR, 0o644)
	assert.ErrorIs(t, err, ErrInjected)

	_, err = ffs.CreateTemp(t.TempDir(), "tmp-*.idx")
	assert.ErrorIs(t, err, ErrInjected)

	f, err := ffs.OpenFile(filepath.Join(t.TempDir(), "nodes.dat"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestFaultyFS_SyncAndClose(t *testing.T) {
	ffs := NewFaultyFS(nil)
	ffs.AddRule("sync", Fault{FailAfterBytes: -1, FailOnSync: true, FailOnClose: true})

	f, err := ffs.OpenFile(filepath.Join(t.TempDir(), "sync.idx"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	assert.ErrorIs(t, f.Sync(), ErrInjected)
	assert.ErrorIs(t, f.Close(), ErrInjected)
}
