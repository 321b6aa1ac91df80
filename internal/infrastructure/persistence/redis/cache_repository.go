// Package redis adapts the tiered cache service to the cache repository port
package redis

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/alchemorsel/nutriplan/internal/infrastructure/cache"
	"github.com/alchemorsel/nutriplan/internal/ports/outbound"
)

// CacheRepository implements the cache repository interface using cache-first pattern
type CacheRepository struct {
	cacheService *cache.CacheService
	logger       *zap.Logger
}

// NewCacheRepository creates a new cache repository with cache-first implementation
func NewCacheRepository(cacheService *cache.CacheService, logger *zap.Logger) *CacheRepository {
	return &CacheRepository{
		cacheService: cacheService,
		logger:       logger,
	}
}

var _ outbound.CacheRepository = (*CacheRepository)(nil)

// Get retrieves a value from cache using cache-first pattern
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.cacheService.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, outbound.ErrCacheMiss) {
			r.logger.Debug("Cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, err
	}
	return data, nil
}

// Set stores a value in cache with TTL
func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.cacheService.Set(ctx, key, value, ttl); err != nil {
		r.logger.Error("Cache set failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Delete removes a value from cache
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	if err := r.cacheService.Delete(ctx, key); err != nil {
		r.logger.Error("Cache delete failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Exists checks if a key exists in cache
func (r *CacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := r.cacheService.Exists(ctx, key)
	if err != nil {
		r.logger.Error("Cache exists check failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return exists[key], nil
}
