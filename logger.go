package numidx

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with index-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithIndex adds the index name to every record.
func (l *Logger) WithIndex(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("index", name),
	}
}

// LogOpen logs opening an index.
func (l *Logger) LogOpen(ctx context.Context, name string, levels int, dataCount uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "index opened",
		"name", name,
		"levels", levels,
		"data_count", dataCount,
	)
}

// LogBuild logs the outcome of a build.
func (l *Logger) LogBuild(ctx context.Context, stats BuildStats, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"records", stats.Records,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "build completed",
		"records", stats.Records,
		"levels", stats.Levels,
		"level_size", stats.LevelSize,
		"bytes", stats.Bytes,
		"duration", stats.Duration,
	)
}

// LogLevel reports build progress after a level is written.
func (l *Logger) LogLevel(ctx context.Context, level int, entries uint64) {
	l.InfoContext(ctx, "level written",
		"index_level", level,
		"entries", entries,
	)
}

// LogScanStopped logs a read error that ended a source scan early.
func (l *Logger) LogScanStopped(ctx context.Context, pass string, records uint64, err error) {
	l.WarnContext(ctx, "source read failed, treating as end of data",
		"pass", pass,
		"records", records,
		"error", err,
	)
}

// LogResolve logs a resolve batch.
func (l *Logger) LogResolve(ctx context.Context, requested, found, failed int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "resolve failed",
			"requested", requested,
			"found", found,
			"failed", failed,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "resolve completed",
		"requested", requested,
		"found", found,
		"duration", d,
	)
}

// LogNotFound logs an id that is not in the index. level is the level where the descent stopped.
func (l *Logger) LogNotFound(ctx context.Context, id uint64, level int) {
	l.DebugContext(ctx, "id not found",
		"id", id,
		"index_level", level,
	)
}

// LogStats logs index statistics.
func (l *Logger) LogStats(ctx context.Context, s Stats) {
	l.InfoContext(ctx, "index statistics",
		"levels", s.Levels,
		"level_size", s.LevelSize,
		"data_count", s.DataCount,
		"root_entries", s.RootEntries,
		"cached_pages", s.CachedPages,
		"cached_entries", s.CachedEntries,
		"memory_bytes", s.MemoryBytes,
	)
	for _, lv := range s.PerLevel {
		l.InfoContext(ctx, "level cache",
			"index_level", lv.Level,
			"pages", lv.Pages,
			"entries", lv.Entries,
			"hits", lv.Hits,
			"misses", lv.Misses,
			"evictions", lv.Evictions,
		)
	}
}
