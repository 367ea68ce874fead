package numidx

import (
	"log/slog"

	"github.com/hupe1980/numidx/internal/fs"
	"github.com/hupe1980/numidx/internal/resource"
)

// DefaultPageCacheCapacity is the per-level page cache capacity in pages.
const DefaultPageCacheCapacity = 1_000_000

type (
	// ResourceController enforces memory, worker and IO budgets shared by indexes and builders.
	ResourceController = resource.Controller
	// ResourceConfig configures a ResourceController.
	ResourceConfig = resource.Config
	// FileSystem abstracts the local file operations used by builds and OpenFile.
	FileSystem = fs.FileSystem
)

// NewResourceController creates a ResourceController.
func NewResourceController(cfg ResourceConfig) *ResourceController {
	return resource.NewController(cfg)
}

type options struct {
	metricsCollector  MetricsCollector
	logger            *Logger
	pageCacheCapacity int
	pageCacheBytes    int64
	blockCacheBytes   int64
	resource          *resource.Controller
	fileSystem        fs.FileSystem
}

// Option configures Open and OpenFile.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &numidx.BasicMetricsCollector{}
//	idx, _ := numidx.OpenFile(ctx, "events.idx", numidx.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
//	fmt.Printf("Page loads: %d\n", stats.PageLoads)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := numidx.NewJSONLogger(slog.LevelInfo)
//	idx, _ := numidx.OpenFile(ctx, "events.idx", numidx.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithPageCacheCapacity bounds each level's page cache to n pages.
// Default: DefaultPageCacheCapacity.
func WithPageCacheCapacity(n int) Option {
	return func(o *options) {
		o.pageCacheCapacity = n
	}
}

// WithPageCacheBytes additionally bounds each level's page cache by the
// decoded size of its pages (16 bytes per entry). Zero disables the bound.
func WithPageCacheBytes(n int64) Option {
	return func(o *options) {
		o.pageCacheBytes = n
	}
}

// WithBlockCache puts a block cache of the given size in bytes in front of the
// index blob. Worth enabling for remote stores.
func WithBlockCache(bytes int64) Option {
	return func(o *options) {
		o.blockCacheBytes = bytes
	}
}

// WithResourceController shares a resource controller with the index.
// Cached pages are accounted against its memory budget and Fetch uses its worker limit.
func WithResourceController(rc *ResourceController) Option {
	return func(o *options) {
		o.resource = rc
	}
}

// WithFileSystem sets the file system used by OpenFile. Blobs opened through a
// custom file system are read with positional reads instead of mmap.
func WithFileSystem(fsys FileSystem) Option {
	return func(o *options) {
		o.fileSystem = fsys
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector:  NoopMetricsCollector{},
		logger:            NoopLogger(),
		pageCacheCapacity: DefaultPageCacheCapacity,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.pageCacheCapacity <= 0 {
		o.pageCacheCapacity = DefaultPageCacheCapacity
	}
	return o
}
