package locality

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a byte store with expiry. Get reports ok=false on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

type RedisCache struct {
	rdb redis.Cmdable
}

func NewRedisCache(rdb redis.Cmdable) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, val, ttl).Err()
}

type CacheObserver interface {
	ObserveCache(hit bool)
}

// CachedClient memoises successful lookups, empty results included.
// Cache failures are logged and bypassed; errors from the wrapped Lookuper are never stored.
type CachedClient struct {
	next     Lookuper
	cache    Cache
	ttl      time.Duration
	log      *slog.Logger
	observer CacheObserver
}

func NewCachedClient(next Lookuper, cache Cache, ttl time.Duration, log *slog.Logger, observer CacheObserver) *CachedClient {
	if log == nil {
		log = slog.Default()
	}
	return &CachedClient{
		next:     next,
		cache:    cache,
		ttl:      ttl,
		log:      log.With("component", "locality_cache"),
		observer: observer,
	}
}

func CacheKey(query, state string) string {
	return fmt.Sprintf("locality:v1:%s|%s", strings.ToLower(strings.TrimSpace(query)), strings.ToUpper(strings.TrimSpace(state)))
}

func (c *CachedClient) Lookup(ctx context.Context, query, state string) ([]Location, error) {
	if c.cache == nil || c.ttl <= 0 || strings.TrimSpace(query) == "" {
		return c.next.Lookup(ctx, query, state)
	}

	key := CacheKey(query, state)
	if b, ok, err := c.cache.Get(ctx, key); err != nil {
		c.log.Warn("cache get failed", "key", key, "err", err)
	} else if ok {
		var locs []Location
		if err := json.Unmarshal(b, &locs); err == nil {
			c.observe(true)
			return locs, nil
		}
		c.log.Warn("cache entry corrupt", "key", key)
	}
	c.observe(false)

	locs, err := c.next.Lookup(ctx, query, state)
	if err != nil {
		return nil, err
	}
	if locs == nil {
		locs = []Location{}
	}

	b, err := json.Marshal(locs)
	if err == nil {
		err = c.cache.Set(ctx, key, b, c.ttl)
	}
	if err != nil {
		c.log.Warn("cache set failed", "key", key, "err", err)
	}
	return locs, nil
}

func (c *CachedClient) observe(hit bool) {
	if c.observer != nil {
		c.observer.ObserveCache(hit)
	}
}
