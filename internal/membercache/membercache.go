// Package membercache fronts guild member REST lookups with a TTL'd
// in-memory cache so the join and leaderboard paths do not hammer the API
// for the same user.
package membercache

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"
)

type Cache struct {
	l1    *ristretto.Cache
	group singleflight.Group
	ttl   time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
}

type Config struct {
	MaxCost     int64         // max cost in bytes (default: 4MB)
	NumCounters int64         // keys tracked for frequency (default: 50k)
	TTL         time.Duration // entry lifetime (default: 2 minutes)
}

func New(cfg Config) (*Cache, error) {
	if cfg.MaxCost == 0 {
		cfg.MaxCost = 4 << 20
	}
	if cfg.NumCounters == 0 {
		cfg.NumCounters = 50000
	}
	if cfg.TTL == 0 {
		cfg.TTL = 2 * time.Minute
	}

	l1, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create member cache: %w", err)
	}

	return &Cache{l1: l1, ttl: cfg.TTL}, nil
}

// Get returns the cached value for key, or fetches it. Concurrent fetches
// for the same key collapse into one call via singleflight. A fetch that
// returns (nil, nil) is cached too, so absent members do not trigger a
// lookup on every event.
func (c *Cache) Get(key string, fetch func() (interface{}, error)) (interface{}, error) {
	if val, found := c.l1.Get(key); found {
		c.hits.Add(1)
		return val, nil
	}
	c.misses.Add(1)

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		return fetch()
	})
	if err != nil {
		return nil, err
	}

	c.l1.SetWithTTL(key, val, 1, c.ttl)
	return val, nil
}

// Invalidate drops one key.
func (c *Cache) Invalidate(key string) {
	c.l1.Del(key)
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) Close() {
	c.l1.Close()
}
