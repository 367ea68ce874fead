package numidx

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hupe1980/numidx/blobstore"
	"github.com/hupe1980/numidx/internal/conv"
	"github.com/hupe1980/numidx/internal/fs"
	"github.com/hupe1980/numidx/internal/page"
	"github.com/hupe1980/numidx/internal/resource"
	"github.com/hupe1980/numidx/record"
)

// DefaultLevelSize is the number of entries per page used when none is configured.
const DefaultLevelSize = 64

// ctxCheckInterval is how many records a scan reads between context checks.
const ctxCheckInterval = 4096

// BuildStats describes a finished build.
type BuildStats struct {
	// Records is the number of records indexed.
	Records uint64
	// Levels is the number of index levels, root included.
	Levels int
	// LevelSize is the maximum number of entries per page.
	LevelSize int
	// LevelEntries holds the entry count of each level, bottom first.
	LevelEntries []uint64
	// RootOffset is the byte position of the root page.
	RootOffset uint64
	// Bytes is the size of the index file.
	Bytes int64
	// Duration is the wall time of the build.
	Duration time.Duration
}

// Builder writes index files. It is an immutable fluent builder: each method
// returns a new Builder with the updated configuration.
//
// Example:
//
//	stats, err := numidx.NewBuilder().
//	    LevelSize(128).
//	    Logger(numidx.NewTextLogger(slog.LevelInfo)).
//	    BuildFile(ctx, "events.dat", "events.idx")
type Builder struct {
	levelSize int
	logger    *Logger
	metrics   MetricsCollector
	ioLimit   int64
	fsys      fs.FileSystem
	tempDir   string
}

// NewBuilder returns a Builder with default settings.
func NewBuilder() Builder {
	return Builder{
		levelSize: DefaultLevelSize,
		logger:    NoopLogger(),
		metrics:   NoopMetricsCollector{},
		fsys:      fs.Default,
	}
}

// LevelSize sets the maximum number of entries per page. It must be at least 2.
// Default: DefaultLevelSize.
func (b Builder) LevelSize(n int) Builder {
	b.levelSize = n
	return b
}

// Logger sets the structured logger for build progress.
func (b Builder) Logger(l *Logger) Builder {
	if l == nil {
		l = NoopLogger()
	}
	b.logger = l
	return b
}

// Metrics sets the metrics collector for build results.
func (b Builder) Metrics(mc MetricsCollector) Builder {
	if mc == nil {
		mc = NoopMetricsCollector{}
	}
	b.metrics = mc
	return b
}

// IOLimit caps the throughput of source scans and store uploads in bytes per second.
// Zero means unlimited.
func (b Builder) IOLimit(bytesPerSec int64) Builder {
	b.ioLimit = bytesPerSec
	return b
}

// FileSystem sets the file system used by BuildFile and BuildToStore.
func (b Builder) FileSystem(fsys FileSystem) Builder {
	if fsys == nil {
		fsys = fs.Default
	}
	b.fsys = fsys
	return b
}

// TempDir sets the directory for the temporary index file of BuildToStore.
// Default: os.TempDir().
func (b Builder) TempDir(dir string) Builder {
	b.tempDir = dir
	return b
}

// withDefaults fills in what a zero Builder lacks.
func (b Builder) withDefaults() Builder {
	if b.logger == nil {
		b.logger = NoopLogger()
	}
	if b.metrics == nil {
		b.metrics = NoopMetricsCollector{}
	}
	if b.fsys == nil {
		b.fsys = fs.Default
	}
	return b
}

func (b Builder) controller() *resource.Controller {
	if b.ioLimit <= 0 {
		return nil
	}
	return resource.NewController(resource.Config{IOLimitBytesPerSec: b.ioLimit})
}

// Build scans src twice and writes the index to dst, starting at offset 0.
// Destinations with a Truncate method, such as *os.File, are cut to the index
// size. Others must not hold bytes past the index, or Open sees them as part
// of the file.
//
// The first pass counts records. The second writes level 0 and every summary
// level above it, then patches the root offset into the header.
func (b Builder) Build(ctx context.Context, src record.Source, dst io.WriteSeeker) (BuildStats, error) {
	b = b.withDefaults()
	start := time.Now()
	stats, err := b.build(ctx, src, dst)
	stats.Duration = time.Since(start)

	b.metrics.RecordBuild(stats.Records, stats.Levels, stats.Duration, err)
	b.logger.LogBuild(ctx, stats, err)
	return stats, err
}

// BuildFile indexes the data file at dataPath into indexPath.
//
// The index is written to a temporary file next to indexPath and renamed into
// place only after a successful build, so a failed build leaves no index behind.
func (b Builder) BuildFile(ctx context.Context, dataPath, indexPath string) (BuildStats, error) {
	b = b.withDefaults()
	src := record.FileSource{
		Path:        dataPath,
		FS:          b.fsys,
		Controller:  b.controller(),
		SkipPayload: true,
	}

	dir := filepath.Dir(indexPath)
	f, err := b.fsys.CreateTemp(dir, "."+filepath.Base(indexPath)+".tmp-*")
	if err != nil {
		return BuildStats{}, &OpenError{Op: "create", Name: indexPath, Err: err}
	}

	stats, err := b.Build(ctx, src, f)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = b.fsys.Rename(f.Name(), indexPath)
	}
	if err != nil {
		_ = b.fsys.Remove(f.Name())
		return stats, err
	}
	return stats, nil
}

// BuildToStore builds the index into a temporary local file and uploads it to
// store under name. The upload is rate limited by IOLimit.
func (b Builder) BuildToStore(ctx context.Context, src record.Source, store blobstore.Store, name string) (BuildStats, error) {
	b = b.withDefaults()
	dir := b.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := b.fsys.CreateTemp(dir, "numidx-*.idx")
	if err != nil {
		return BuildStats{}, &OpenError{Op: "create", Name: dir, Err: err}
	}
	defer func() {
		_ = f.Close()
		_ = b.fsys.Remove(f.Name())
	}()

	stats, err := b.Build(ctx, src, f)
	if err != nil {
		return stats, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return stats, err
	}

	w, err := store.Create(ctx, name)
	if err != nil {
		return stats, &OpenError{Op: "create", Name: name, Err: err}
	}
	if _, err := io.Copy(resource.NewRateLimitedWriter(ctx, w, b.controller()), f); err != nil {
		_ = w.Close()
		return stats, fmt.Errorf("numidx: upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return stats, fmt.Errorf("numidx: upload %s: %w", name, err)
	}
	b.logger.InfoContext(ctx, "index uploaded", "name", name, "bytes", stats.Bytes)
	return stats, nil
}

func (b Builder) build(ctx context.Context, src record.Source, dst io.WriteSeeker) (BuildStats, error) {
	stats := BuildStats{LevelSize: b.levelSize}
	if b.levelSize < 2 {
		return stats, fmt.Errorf("%w: got %d", ErrInvalidLevelSize, b.levelSize)
	}

	count, err := b.count(ctx, src)
	if err != nil {
		return stats, err
	}

	h := page.Header{
		Levels:    page.LevelCount(count, b.levelSize),
		LevelSize: b.levelSize,
		DataCount: count,
	}
	stats.Levels = h.Levels
	stats.LevelEntries = page.LevelEntries(count, b.levelSize)

	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return stats, err
	}
	w := &levelWriter{bw: bufio.NewWriterSize(dst, 64<<10)}
	if err := w.write(h.AppendBinary(nil)); err != nil {
		return stats, err
	}

	starts, indexed, err := b.writeLeafLevel(ctx, src, w)
	stats.Records = indexed
	if err != nil {
		return stats, err
	}
	if indexed != count {
		return stats, &CountMismatchError{Counted: count, Indexed: indexed}
	}
	b.logger.LogLevel(ctx, 0, indexed)

	// The root is the last level written; with one level that is level 0.
	h.RootOffset = uint64(h.Size())
	for k := 1; k < h.Levels; k++ {
		h.RootOffset = uint64(w.pos)
		if starts, err = w.writeSummaryLevel(starts, b.levelSize); err != nil {
			return stats, fmt.Errorf("numidx: level %d: %w", k, err)
		}
		b.logger.LogLevel(ctx, k, stats.LevelEntries[k])
	}
	stats.RootOffset = h.RootOffset

	if err := w.bw.Flush(); err != nil {
		return stats, err
	}
	stats.Bytes = w.pos

	var root [8]byte
	binary.LittleEndian.PutUint64(root[:], h.RootOffset)
	if _, err := dst.Seek(h.RootOffsetPos(), io.SeekStart); err != nil {
		return stats, err
	}
	if _, err := dst.Write(root[:]); err != nil {
		return stats, err
	}
	// A reused destination may be longer than the new index.
	if t, ok := dst.(interface{ Truncate(size int64) error }); ok {
		if err := t.Truncate(w.pos); err != nil {
			return stats, err
		}
	}
	if _, err := dst.Seek(w.pos, io.SeekStart); err != nil {
		return stats, err
	}
	return stats, nil
}

// count runs the first pass.
func (b Builder) count(ctx context.Context, src record.Source) (uint64, error) {
	r, closer, err := src.Open(ctx)
	if err != nil {
		return 0, &OpenError{Op: "open", Name: "source", Err: err}
	}
	defer closer.Close()

	var n uint64
	for {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
		if _, err := r.ReadRecord(); err != nil {
			if !errors.Is(err, io.EOF) {
				b.logger.LogScanStopped(ctx, "count", n, err)
			}
			return n, nil
		}
		n++
	}
}

// writeLeafLevel runs the second pass and writes level 0. It returns the first
// entry of every page for the level above.
func (b Builder) writeLeafLevel(ctx context.Context, src record.Source, w *levelWriter) ([]page.Entry, uint64, error) {
	r, closer, err := src.Open(ctx)
	if err != nil {
		return nil, 0, &OpenError{Op: "open", Name: "source", Err: err}
	}
	defer closer.Close()

	var (
		starts []page.Entry
		enc    page.Encoder
		prev   record.Record
		n      uint64
	)
	for {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, n, err
			}
		}
		rec, err := r.ReadRecord()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				b.logger.LogScanStopped(ctx, "build", n, err)
			}
			return starts, n, nil
		}

		off, err := conv.Int64ToUint64(rec.Offset)
		if err != nil {
			return nil, n, fmt.Errorf("numidx: record %d (id %d): %w", n, rec.ID, err)
		}
		if n > 0 && (rec.ID <= prev.ID || rec.Offset <= prev.Offset) {
			return nil, n, &NonMonotonicError{
				Position:   n,
				PrevID:     prev.ID,
				ID:         rec.ID,
				PrevOffset: prev.Offset,
				Offset:     rec.Offset,
			}
		}

		ent := page.Entry{StartID: rec.ID, Offset: off}
		if n%uint64(b.levelSize) == 0 {
			enc.StartPage()
			starts = append(starts, page.Entry{StartID: rec.ID, Offset: uint64(w.pos)})
		}
		if err := w.append(&enc, ent); err != nil {
			return nil, n, err
		}

		prev = rec
		n++
	}
}

// levelWriter tracks the write position while encoding pages.
type levelWriter struct {
	bw  *bufio.Writer
	pos int64
	buf []byte
}

func (w *levelWriter) write(p []byte) error {
	n, err := w.bw.Write(p)
	w.pos += int64(n)
	return err
}

func (w *levelWriter) append(enc *page.Encoder, ent page.Entry) error {
	var err error
	if w.buf, err = enc.Append(w.buf[:0], ent); err != nil {
		return err
	}
	return w.write(w.buf)
}

// writeSummaryLevel writes one entry per page of the level below and returns
// the first entry of every page it wrote.
func (w *levelWriter) writeSummaryLevel(below []page.Entry, levelSize int) ([]page.Entry, error) {
	var (
		starts []page.Entry
		enc    page.Encoder
	)
	for i, ent := range below {
		if i%levelSize == 0 {
			enc.StartPage()
			starts = append(starts, page.Entry{StartID: ent.StartID, Offset: uint64(w.pos)})
		}
		if err := w.append(&enc, ent); err != nil {
			return nil, err
		}
	}
	return starts, nil
}
