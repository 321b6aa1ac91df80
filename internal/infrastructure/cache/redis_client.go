package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/alchemorsel/nutriplan/internal/infrastructure/config"
	"github.com/alchemorsel/nutriplan/internal/ports/outbound"
)

// ErrCircuitOpen is returned while Redis is considered unavailable.
var ErrCircuitOpen = errors.New("redis circuit breaker is open")

// RedisClient provides Redis connection management with cluster support
type RedisClient struct {
	client         redis.UniversalClient
	logger         *zap.Logger
	circuitBreaker *CircuitBreaker
	hits           atomic.Int64
	misses         atomic.Int64
	failures       atomic.Int64
}

// NewRedisClient creates a Redis client from configuration and verifies the connection
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) (*RedisClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	opts := &redis.UniversalOptions{
		Addrs:        []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Password:     cfg.Password,
		DB:           cfg.Database,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxIdleConns: cfg.MaxIdleConns,

		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,

		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: 5 * time.Minute,
		PoolTimeout:     10 * time.Second,
	}

	if cfg.EnableCluster && len(cfg.ClusterNodes) > 0 {
		opts.Addrs = cfg.ClusterNodes
		logger.Info("Redis cluster mode enabled", zap.Strings("nodes", cfg.ClusterNodes))
	}

	client := NewRedisClientFromUniversal(redis.NewUniversalClient(opts), logger)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis client initialized successfully",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Int("database", cfg.Database),
		zap.Bool("cluster_enabled", cfg.EnableCluster))

	return client, nil
}

// NewRedisClientFromUniversal wraps an existing client.
func NewRedisClientFromUniversal(client redis.UniversalClient, logger *zap.Logger) *RedisClient {
	return &RedisClient{
		client:         client,
		logger:         logger.Named("redis"),
		circuitBreaker: NewCircuitBreaker(5, 30*time.Second),
	}
}

// Client exposes the underlying client for health checks
func (r *RedisClient) Client() redis.UniversalClient {
	return r.client
}

// Ping tests Redis connection
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.do(func() error { return r.client.Ping(ctx).Err() })
}

// Get retrieves a value; a missing key yields outbound.ErrCacheMiss
func (r *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	var result []byte
	err := r.do(func() error {
		var err error
		result, err = r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return outbound.ErrCacheMiss
		}
		return err
	})

	switch {
	case err == nil:
		r.hits.Add(1)
		return result, nil
	case errors.Is(err, outbound.ErrCacheMiss):
		r.misses.Add(1)
		return nil, err
	default:
		r.misses.Add(1)
		r.logger.Error("Redis GET failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
}

// Set stores a value in Redis with TTL
func (r *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := r.do(func() error { return r.client.Set(ctx, key, value, ttl).Err() })
	if err != nil {
		r.logger.Error("Redis SET failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Delete removes keys from Redis
func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.do(func() error { return r.client.Del(ctx, keys...).Err() })
}

// Exists returns how many of keys exist
func (r *RedisClient) Exists(ctx context.Context, keys ...string) (int64, error) {
	var n int64
	err := r.do(func() error {
		var err error
		n, err = r.client.Exists(ctx, keys...).Result()
		return err
	})
	return n, err
}

// HitRatio reports hits / (hits + misses) since start.
func (r *RedisClient) HitRatio() float64 {
	hits, misses := r.hits.Load(), r.misses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// do runs op under the circuit breaker. Cache misses count as successes.
func (r *RedisClient) do(op func() error) error {
	if !r.circuitBreaker.AllowRequest() {
		return ErrCircuitOpen
	}
	err := op()
	if err != nil && !errors.Is(err, outbound.ErrCacheMiss) {
		r.failures.Add(1)
		r.circuitBreaker.RecordFailure()
		return err
	}
	r.circuitBreaker.RecordSuccess()
	return err
}

// CircuitState represents circuit breaker states
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitBreaker stops calling Redis after repeated failures and probes it
// again once the timeout has elapsed.
type CircuitBreaker struct {
	maxFailures     int
	timeout         time.Duration
	failures        int
	lastFailureTime time.Time
	state           CircuitState
	now             func() time.Time
	mu              sync.Mutex
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(maxFailures int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures: maxFailures,
		timeout:     timeout,
		state:       CircuitClosed,
		now:         time.Now,
	}
}

// AllowRequest checks if requests are allowed based on circuit state
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailureTime) > cb.timeout {
			cb.state = CircuitHalfOpen
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess records a successful operation
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = CircuitClosed
}

// RecordFailure records a failed operation
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = cb.now()

	if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = CircuitOpen
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
