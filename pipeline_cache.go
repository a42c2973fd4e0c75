package magnolia

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/gogpu/magnolia/backend"
)

// CompileFunc builds the pipeline for a key on one backend.
type CompileFunc func(ctx context.Context, key backend.PipelineKey) (backend.Handle, error)

// PipelineCache maps pipeline keys to compiled pipelines of one backend.
//
// Thread Safety:
// PipelineCache is safe for concurrent use. Lookups take a read lock.
// Misses are de-duplicated with singleflight, so concurrent requests for
// the same key compile once and share the result, while hits for other
// keys proceed during the compilation.
//
// Entries are immutable once inserted. A failed compilation is cached as
// well and returned until InvalidateAll, so a broken shader is compiled once
// per backend rather than once per frame. Cancellation is not cached.
type PipelineCache struct {
	mu      sync.RWMutex
	entries map[backend.PipelineKey]backend.Handle
	failed  map[backend.PipelineKey]error

	group   singleflight.Group
	compile CompileFunc
	release func(backend.Handle)

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewPipelineCache creates an empty cache. release, when non-nil, is
// called for every entry dropped by InvalidateAll.
func NewPipelineCache(compile CompileFunc, release func(backend.Handle)) *PipelineCache {
	return &PipelineCache{
		entries: make(map[backend.PipelineKey]backend.Handle),
		failed:  make(map[backend.PipelineKey]error),
		compile: compile,
		release: release,
	}
}

// GetOrCreate returns the pipeline for key, compiling it on first use.
//
// Double-check locking:
//  1. Fast path: RLock, return if cached
//  2. Slow path: singleflight on the key, check again, compile, insert
func (c *PipelineCache) GetOrCreate(ctx context.Context, key backend.PipelineKey) (backend.Handle, error) {
	if h, ok, err := c.lookup(key); ok {
		c.hits.Add(1)
		return h, err
	}

	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		if h, ok, err := c.lookup(key); ok {
			return h, err
		}
		c.misses.Add(1)
		h, err := c.compile(ctx, key)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				c.mu.Lock()
				c.failed[key] = err
				c.mu.Unlock()
			}
			return backend.NoHandle, err
		}
		c.mu.Lock()
		c.entries[key] = h
		c.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return backend.NoHandle, err
	}
	return v.(backend.Handle), nil
}

// lookup reports a cached pipeline or a cached compile error for key.
func (c *PipelineCache) lookup(key backend.PipelineKey) (backend.Handle, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err, ok := c.failed[key]; ok {
		return backend.NoHandle, true, err
	}
	h, ok := c.entries[key]
	return h, ok, nil
}

// InvalidateAll releases and drops every entry, forgets failed keys and
// resets statistics.
func (c *PipelineCache) InvalidateAll() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[backend.PipelineKey]backend.Handle)
	c.failed = make(map[backend.PipelineKey]error)
	c.mu.Unlock()

	if c.release != nil {
		for _, h := range entries {
			c.release(h)
		}
	}
	c.hits.Store(0)
	c.misses.Store(0)
}

// Len returns the number of cached pipelines. Failed keys are not counted.
func (c *PipelineCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cache hits and misses since the last InvalidateAll. A miss
// is a compilation; callers that waited on another caller's compilation
// count as neither.
func (c *PipelineCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// HitRate returns the hit rate in [0, 1], or 0 before any request.
func (c *PipelineCache) HitRate() float64 {
	hits, misses := c.Stats()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
