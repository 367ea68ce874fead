package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a cache admission would exceed the budget.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds process-wide limits shared by every index that uses the controller.
type Config struct {
	// MemoryLimitBytes caps decoded pages and cached blocks across all
	// indexes. Zero tracks usage without a cap.
	MemoryLimitBytes int64

	// MaxWorkers caps concurrent record reads across all Fetch calls.
	// Zero means 1.
	MaxWorkers int64

	// IOLimitBytesPerSec paces build scans and uploads. Zero is unlimited.
	IOLimitBytesPerSec int64
}

// Controller hands out memory, fetch slots and IO bandwidth.
// A nil *Controller grants everything.
type Controller struct {
	cfg Config

	mem     *semaphore.Weighted // nil when uncapped
	memUsed atomic.Int64

	fetch *semaphore.Weighted
	io    *rate.Limiter // nil when unlimited
}

// NewController creates a controller for cfg.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	c := &Controller{cfg: cfg, fetch: semaphore.NewWeighted(cfg.MaxWorkers)}
	if cfg.MemoryLimitBytes > 0 {
		c.mem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		// One second of burst keeps large page writes from stalling on WaitN.
		c.io = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// AcquireMemory reserves bytes without blocking. Caches treat
// ErrMemoryLimitExceeded as "evict or skip", never as a failed lookup.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.mem != nil && !c.mem.TryAcquire(bytes) {
		return ErrMemoryLimitExceeded
	}
	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory returns bytes taken by AcquireMemory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.mem != nil {
		c.mem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the bytes currently reserved.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// Workers returns the fetch concurrency limit.
func (c *Controller) Workers() int {
	if c == nil {
		return 1
	}
	return int(c.cfg.MaxWorkers)
}

// AcquireWorker blocks until a fetch slot is free or ctx is done.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.fetch.Acquire(ctx, 1)
}

// ReleaseWorker frees a slot taken by AcquireWorker.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.fetch.Release(1)
}

// AcquireIO waits until n bytes may pass. Requests larger than the burst
// are split.
func (c *Controller) AcquireIO(ctx context.Context, n int) error {
	if c == nil || c.io == nil {
		return nil
	}
	burst := c.io.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := c.io.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
