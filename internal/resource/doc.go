// Package resource implements the Controller for global limits.
//
// The Controller manages three resource types:
//
//   - Memory: bytes held by page and block caches (non-blocking, fail-fast)
//   - Workers: concurrent record fetches
//   - IO: rate limit for build scans and blob uploads
//
// # Memory Management
//
// Memory tracking uses a weighted semaphore for hard limits and an atomic
// counter for usage. AcquireMemory is non-blocking and returns
// ErrMemoryLimitExceeded immediately; caches react by not admitting the value.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 256 << 20,
//	})
//
// # IO Rate Limiting
//
// A token bucket throttles sequential scans so that an index build does not
// starve foreground readers of the same disk:
//
//	r := resource.NewRateLimitedReader(ctx, file, rc)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
package resource
