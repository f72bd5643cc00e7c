package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/202030481266/FengWenServer/internal/domain"
	"github.com/202030481266/FengWenServer/internal/metrics"
)

const resultCachePrefix = "reading_cache:"

// ResultCache caches computed reading responses in Redis. Keys embed the
// request email so a purchase can invalidate every cached variant for an
// address with a single SCAN pass.
type ResultCache struct {
	rdb *goredis.Client
}

func NewResultCache(rdb *goredis.Client) *ResultCache {
	return &ResultCache{rdb: rdb}
}

var _ domain.ResultCache = (*ResultCache)(nil)

// CacheKey builds a cache key from the request email and a digest of the
// remaining request fields.
func CacheKey(email string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return resultCachePrefix + email + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}

// Get loads a cached response into dest. Returns false on miss. Redis
// errors degrade to a miss so the caller recomputes instead of failing.
func (c *ResultCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		metrics.ResultCacheHits.WithLabelValues("miss").Inc()
		return false, nil
	}
	if err != nil {
		slog.Warn("Result cache GET failed, treating as miss", "error", err)
		metrics.ResultCacheHits.WithLabelValues("error").Inc()
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		slog.Warn("Failed to unmarshal cached reading, treating as miss", "error", err)
		metrics.ResultCacheHits.WithLabelValues("error").Inc()
		return false, nil
	}

	metrics.ResultCacheHits.WithLabelValues("hit").Inc()
	return true, nil
}

// Set stores a response best-effort. Marshal failures are returned,
// Redis failures are only logged.
func (c *ResultCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal reading for cache: %w", err)
	}

	if err := c.rdb.Set(ctx, key, encoded, ttl).Err(); err != nil {
		slog.Warn("Failed to populate result cache", "error", err)
	}
	return nil
}

// InvalidateEmail removes all cached readings for an address. Called after
// a purchase unlocks the full result.
func (c *ResultCache) InvalidateEmail(ctx context.Context, email string) error {
	pattern := resultCachePrefix + email + ":*"

	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan result cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate result cache: %w", err)
	}
	return nil
}
