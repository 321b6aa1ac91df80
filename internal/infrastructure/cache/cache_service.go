package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/alchemorsel/nutriplan/internal/ports/outbound"
)

// maxValueSize guards Redis against oversized snapshots.
const maxValueSize = 16 << 20

// CacheConfig holds cache service configuration
type CacheConfig struct {
	DefaultTTL     time.Duration
	LocalTTL       time.Duration
	LocalCacheSize int
	KeyPrefix      string
}

// DefaultCacheConfig returns the defaults used when no configuration is given
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		DefaultTTL:     10 * time.Minute,
		LocalTTL:       time.Minute,
		LocalCacheSize: 64,
	}
}

// CacheStats is a point-in-time copy of the service counters
type CacheStats struct {
	L1Hits   int64 `json:"l1_hits"`
	L1Misses int64 `json:"l1_misses"`
	L2Hits   int64 `json:"l2_hits"`
	L2Misses int64 `json:"l2_misses"`
	Errors   int64 `json:"errors"`
	Writes   int64 `json:"writes"`
}

// HitRatio returns hits over lookups across both tiers.
func (s CacheStats) HitRatio() float64 {
	lookups := s.L1Hits + s.L1Misses
	if lookups == 0 {
		return 0
	}
	return float64(s.L1Hits+s.L2Hits) / float64(lookups)
}

// CacheService implements the cache-first pattern: L1 (local) -> L2 (Redis) -> miss.
// The Redis tier is optional; without it the service is a bounded local cache.
type CacheService struct {
	redis      *RedisClient
	localCache *LocalCache
	config     *CacheConfig
	logger     *zap.Logger

	l1Hits, l1Misses atomic.Int64
	l2Hits, l2Misses atomic.Int64
	errs, writes     atomic.Int64
}

// NewCacheService creates a new cache service. redis may be nil.
func NewCacheService(redis *RedisClient, config *CacheConfig, logger *zap.Logger) *CacheService {
	if config == nil {
		config = DefaultCacheConfig()
	}

	service := &CacheService{
		redis:      redis,
		localCache: NewLocalCache(config.LocalCacheSize),
		config:     config,
		logger:     logger.Named("cache"),
	}

	logger.Info("Cache service initialized",
		zap.Duration("default_ttl", config.DefaultTTL),
		zap.Int("local_cache_size", config.LocalCacheSize),
		zap.Bool("redis_enabled", redis != nil))

	return service
}

// Get looks up L1, then L2, repopulating L1 on an L2 hit
func (c *CacheService) Get(ctx context.Context, key string) ([]byte, error) {
	if err := c.validateKey(key); err != nil {
		c.errs.Add(1)
		return nil, err
	}
	key = c.config.KeyPrefix + key

	if data, found := c.localCache.Get(key); found {
		c.l1Hits.Add(1)
		c.logger.Debug("Cache L1 hit", zap.String("key", key))
		return data, nil
	}
	c.l1Misses.Add(1)

	if c.redis == nil {
		return nil, outbound.ErrCacheMiss
	}

	data, err := c.redis.Get(ctx, key)
	switch {
	case err == nil:
		c.l2Hits.Add(1)
		c.logger.Debug("Cache L2 hit", zap.String("key", key))
		c.localCache.Set(key, data, c.localTTL(c.config.DefaultTTL))
		return data, nil
	case errors.Is(err, outbound.ErrCacheMiss):
		c.l2Misses.Add(1)
		return nil, err
	default:
		c.errs.Add(1)
		return nil, err
	}
}

// Set stores data in both cache layers with write-through
func (c *CacheService) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.validateKey(key); err != nil {
		c.errs.Add(1)
		return err
	}
	if len(data) > maxValueSize {
		c.errs.Add(1)
		return fmt.Errorf("cache value of %d bytes exceeds the %d byte limit", len(data), maxValueSize)
	}
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}
	key = c.config.KeyPrefix + key
	c.writes.Add(1)

	c.localCache.Set(key, data, c.localTTL(ttl))

	if c.redis == nil {
		return nil
	}
	if err := c.redis.Set(ctx, key, data, ttl); err != nil {
		c.errs.Add(1)
		return err
	}
	return nil
}

// Delete removes keys from both layers
func (c *CacheService) Delete(ctx context.Context, keys ...string) error {
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		key = c.config.KeyPrefix + key
		c.localCache.Delete(key)
		prefixed = append(prefixed, key)
	}
	if c.redis == nil {
		return nil
	}
	return c.redis.Delete(ctx, prefixed...)
}

// Exists reports which keys are present in either layer
func (c *CacheService) Exists(ctx context.Context, keys ...string) (map[string]bool, error) {
	out := make(map[string]bool, len(keys))
	for _, key := range keys {
		if c.localCache.Exists(c.config.KeyPrefix + key) {
			out[key] = true
			continue
		}
		if c.redis == nil {
			out[key] = false
			continue
		}
		n, err := c.redis.Exists(ctx, c.config.KeyPrefix+key)
		if err != nil {
			return nil, err
		}
		out[key] = n > 0
	}
	return out, nil
}

// InvalidateLocal drops L1 entries with the given prefix, for example after a
// catalog write observed by another replica.
func (c *CacheService) InvalidateLocal(prefix string) int {
	return c.localCache.InvalidatePrefix(c.config.KeyPrefix + prefix)
}

// GetStats returns the current counters
func (c *CacheService) GetStats() CacheStats {
	return CacheStats{
		L1Hits:   c.l1Hits.Load(),
		L1Misses: c.l1Misses.Load(),
		L2Hits:   c.l2Hits.Load(),
		L2Misses: c.l2Misses.Load(),
		Errors:   c.errs.Load(),
		Writes:   c.writes.Load(),
	}
}

func (c *CacheService) localTTL(ttl time.Duration) time.Duration {
	if c.config.LocalTTL > 0 && c.config.LocalTTL < ttl {
		return c.config.LocalTTL
	}
	return ttl
}

func (c *CacheService) validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("cache key cannot be empty")
	}
	if len(key) > 250 {
		return fmt.Errorf("cache key too long: %d characters", len(key))
	}
	return nil
}
