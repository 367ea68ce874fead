package numidx

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    resolveCounter   prometheus.Counter
//	    pageLoadDuration prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordPageLoad(level, bytes int, d time.Duration, err error) {
//	    p.pageLoadDuration.Observe(d.Seconds())
//	}
type MetricsCollector interface {
	// RecordResolve is called after each Resolve or Lookup batch.
	// requested is the number of ids asked for, found the number resolved.
	RecordResolve(requested, found int, duration time.Duration, err error)

	// RecordPageLoad is called after each page cache miss is served from the blob.
	RecordPageLoad(level, bytes int, duration time.Duration, err error)

	// RecordBuild is called after each build.
	RecordBuild(records uint64, levels int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordResolve(int, int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordPageLoad(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordBuild(uint64, int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ResolveCount      atomic.Int64
	ResolveErrors     atomic.Int64
	ResolveRequested  atomic.Int64
	ResolveFound      atomic.Int64
	ResolveTotalNanos atomic.Int64
	PageLoads         atomic.Int64
	PageLoadErrors    atomic.Int64
	PageLoadBytes     atomic.Int64
	PageLoadNanos     atomic.Int64
	BuildCount        atomic.Int64
	BuildErrors       atomic.Int64
	BuildRecords      atomic.Int64
}

// RecordResolve implements MetricsCollector.
func (b *BasicMetricsCollector) RecordResolve(requested, found int, duration time.Duration, err error) {
	b.ResolveCount.Add(1)
	b.ResolveRequested.Add(int64(requested))
	b.ResolveFound.Add(int64(found))
	b.ResolveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ResolveErrors.Add(1)
	}
}

// RecordPageLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPageLoad(_ int, bytes int, duration time.Duration, err error) {
	b.PageLoads.Add(1)
	b.PageLoadBytes.Add(int64(bytes))
	b.PageLoadNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PageLoadErrors.Add(1)
	}
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(records uint64, _ int, _ time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildRecords.Add(int64(records))
	if err != nil {
		b.BuildErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ResolveCount:     b.ResolveCount.Load(),
		ResolveErrors:    b.ResolveErrors.Load(),
		ResolveRequested: b.ResolveRequested.Load(),
		ResolveFound:     b.ResolveFound.Load(),
		ResolveAvgNanos:  avg(b.ResolveTotalNanos.Load(), b.ResolveCount.Load()),
		PageLoads:        b.PageLoads.Load(),
		PageLoadErrors:   b.PageLoadErrors.Load(),
		PageLoadBytes:    b.PageLoadBytes.Load(),
		PageLoadAvgNanos: avg(b.PageLoadNanos.Load(), b.PageLoads.Load()),
		BuildCount:       b.BuildCount.Load(),
		BuildErrors:      b.BuildErrors.Load(),
		BuildRecords:     b.BuildRecords.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ResolveCount     int64
	ResolveErrors    int64
	ResolveRequested int64
	ResolveFound     int64
	ResolveAvgNanos  int64
	PageLoads        int64
	PageLoadErrors   int64
	PageLoadBytes    int64
	PageLoadAvgNanos int64
	BuildCount       int64
	BuildErrors      int64
	BuildRecords     int64
}
