// Package cache provides a read-through TTL cache for query results.
//
// The cache deduplicates concurrent computations of the same key and supports
// blanket invalidation. Invalidation bumps a generation counter, so a compute
// that was already in flight when the cache was invalidated can still answer
// its own callers but can never be written back as a fresh entry.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type inflight[V any] struct {
	done chan struct{}
	gen  uint64
	val  V
	err  error
}

// Cache is a TTL cache keyed by string. Safe for concurrent use.
type Cache[V any] struct {
	ttl    time.Duration
	logger *logrus.Logger

	mu       sync.Mutex
	now      func() time.Time
	entries  map[string]entry[V]
	inflight map[string]*inflight[V]
	gen      uint64
	hits     uint64
	misses   uint64
}

// Info is a point-in-time snapshot of cache effectiveness.
type Info struct {
	Entries    int     `json:"entries"`
	Hits       uint64  `json:"hits"`
	Misses     uint64  `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
	TTLSeconds float64 `json:"ttl_seconds"`
}

// New creates a cache whose entries expire ttl after being stored.
func New[V any](ttl time.Duration, logger *logrus.Logger) *Cache[V] {
	return &Cache[V]{
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		entries:  make(map[string]entry[V]),
		inflight: make(map[string]*inflight[V]),
	}
}

// GetOrCompute returns the cached value for key, or runs compute to produce
// it. Within the TTL, concurrent and repeated calls for the same key share a
// single computation. Errors from compute are returned to every waiting
// caller and are never cached.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, error) {
	var zero V
	for {
		c.mu.Lock()
		if e, ok := c.entries[key]; ok && c.now().Before(e.expiresAt) {
			c.hits++
			c.mu.Unlock()
			return e.value, nil
		}

		if fl, ok := c.inflight[key]; ok {
			// Joining a compute that predates an invalidation would
			// hand out stale data; wait for it to finish, then retry.
			fresh := fl.gen == c.gen
			c.mu.Unlock()
			select {
			case <-fl.done:
				if fresh {
					return fl.val, fl.err
				}
				continue
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		fl := &inflight[V]{done: make(chan struct{}), gen: c.gen}
		c.inflight[key] = fl
		c.misses++
		c.mu.Unlock()

		val, err := compute(ctx)

		c.mu.Lock()
		delete(c.inflight, key)
		if err == nil && fl.gen == c.gen {
			c.entries[key] = entry[V]{value: val, expiresAt: c.now().Add(c.ttl)}
		}
		c.mu.Unlock()

		fl.val, fl.err = val, err
		close(fl.done)
		return val, err
	}
}

// InvalidateAll drops every entry. Reads that begin after this call always
// recompute, even if a computation for their key was already in flight.
func (c *Cache[V]) InvalidateAll() {
	c.mu.Lock()
	dropped := len(c.entries)
	c.gen++
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()

	c.logger.WithField("dropped", dropped).Debug("Cache invalidated")
}

// Info reports live entry count and hit statistics.
func (c *Cache[V]) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()

	live := 0
	now := c.now()
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			live++
		}
	}

	info := Info{
		Entries:    live,
		Hits:       c.hits,
		Misses:     c.misses,
		TTLSeconds: c.ttl.Seconds(),
	}
	if total := c.hits + c.misses; total > 0 {
		info.HitRate = float64(c.hits) / float64(total)
	}
	return info
}
