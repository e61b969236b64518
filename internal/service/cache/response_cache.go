package cache

import (
	"context"
	"encoding/json"
	"time"

	applogger "PillarCast/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// LookupObserver is told about every cache lookup.
type LookupObserver func(hit bool)

// ResponseCache wraps provider calls with a TTL cache. Concurrent misses on
// the same key join a single in-flight fetch. Failed fetches are never stored.
type ResponseCache struct {
	store   BytesCache
	group   singleflight.Group
	l       *applogger.Logger
	observe LookupObserver
}

func NewResponseCache(store BytesCache, l *applogger.Logger) *ResponseCache {
	return &ResponseCache{store: store, l: l}
}

// SetObserver registers a hit/miss callback.
func (c *ResponseCache) SetObserver(fn LookupObserver) { c.observe = fn }

func (c *ResponseCache) lookup(ctx context.Context, key string, dest any) bool {
	b, ok, err := c.store.GetBytes(ctx, key)
	if err != nil {
		c.l.Warn("response cache get failed", applogger.String("key", key), applogger.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, dest); err != nil {
		c.l.Warn("response cache entry corrupt", applogger.String("key", key), applogger.Error(err))
		return false
	}
	return true
}

func (c *ResponseCache) record(hit bool) {
	if c.observe != nil {
		c.observe(hit)
	}
}

// GetOrFetch returns the cached value under key or calls fetch and caches its
// result for ttl. fetch errors are propagated and not cached. A ttl <= 0
// disables caching: every call fetches and nothing is stored.
func GetOrFetch[T any](ctx context.Context, c *ResponseCache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if ttl <= 0 {
		c.record(false)
		return fetch(ctx)
	}
	var cached T
	if c.lookup(ctx, key, &cached) {
		c.record(true)
		return cached, nil
	}
	c.record(false)

	v, err, _ := c.group.Do(key, func() (any, error) {
		// a flight that just finished may have filled the key
		var again T
		if c.lookup(ctx, key, &again) {
			return again, nil
		}
		fresh, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(fresh)
		if err != nil {
			c.l.Warn("response not cacheable", applogger.String("key", key), applogger.Error(err))
			return fresh, nil
		}
		if err := c.store.SetBytes(ctx, key, b, ttl); err != nil {
			c.l.Warn("response cache set failed", applogger.String("key", key), applogger.Error(err))
		}
		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
