package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/edgetier/edgetier-ai-go/internal/models"
)

// PicksCacheStats tracks cache performance metrics
type PicksCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	mu     sync.RWMutex
}

// RedisPicksCache caches the last tier allocation per serving cycle so the
// serving path can answer without rescoring every event.
type RedisPicksCache struct {
	redis  *redis.Client
	ttl    time.Duration
	stats  *PicksCacheStats
	prefix string
	logger *logrus.Logger
}

// NewRedisPicksCache creates a new Redis-based picks cache
func NewRedisPicksCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisPicksCache {
	return &RedisPicksCache{
		redis:  redisClient,
		ttl:    ttl,
		stats:  &PicksCacheStats{},
		prefix: "picks_cache:",
		logger: logger,
	}
}

// Get retrieves the cached allocation for a serving cycle key.
func (c *RedisPicksCache) Get(ctx context.Context, cycle string) (*models.TierAllocation, bool) {
	cacheKey := c.prefix + cycle

	data, err := c.redis.Get(ctx, cacheKey).Result()
	if err == redis.Nil {
		c.miss()
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("cycle", cycle).Warn("Redis error getting cached picks")
		c.miss()
		return nil, false
	}

	var allocation models.TierAllocation
	if err := json.Unmarshal([]byte(data), &allocation); err != nil {
		c.logger.WithError(err).WithField("cycle", cycle).Warn("Error deserializing cached picks")
		c.miss()
		return nil, false
	}

	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()

	return &allocation, true
}

// Set stores the allocation for a serving cycle key. Cache failures are
// logged and swallowed; the serving path falls back to live allocation.
func (c *RedisPicksCache) Set(ctx context.Context, cycle string, allocation *models.TierAllocation) {
	cacheKey := c.prefix + cycle

	data, err := json.Marshal(allocation)
	if err != nil {
		c.logger.WithError(err).WithField("cycle", cycle).Warn("Error serializing picks for cache")
		return
	}

	if err := c.redis.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("cycle", cycle).Warn("Redis error setting cached picks")
		return
	}

	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()
}

// Stats returns a snapshot of cache counters.
func (c *RedisPicksCache) Stats() (hits, misses, sets int64) {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return c.stats.Hits, c.stats.Misses, c.stats.Sets
}

func (c *RedisPicksCache) miss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}
