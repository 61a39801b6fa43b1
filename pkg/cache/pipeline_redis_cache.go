// Package cache provides the Redis-backed read cache for stats and
// style profiles.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisCache implements out.StatsCache. Cache failures degrade to a
// miss; callers fall through to the database.
type RedisCache struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewRedisCache creates a new RedisCache.
func NewRedisCache(client *redis.Client, log zerolog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		log:    log.With().Str("component", "cache").Logger(),
	}
}

func statsKey(tenantID uuid.UUID, timeframe string) string {
	return fmt.Sprintf("stats:%s:%s", tenantID, timeframe)
}

func styleKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("style:%s", tenantID)
}

// GetStats returns cached stats or a miss.
func (c *RedisCache) GetStats(ctx context.Context, tenantID uuid.UUID, timeframe string) (*domain.PipelineStats, bool) {
	var stats domain.PipelineStats
	if !c.getJSON(ctx, statsKey(tenantID, timeframe), &stats) {
		return nil, false
	}
	return &stats, true
}

// SetStats caches stats with the given TTL.
func (c *RedisCache) SetStats(ctx context.Context, tenantID uuid.UUID, timeframe string, stats *domain.PipelineStats, ttl time.Duration) {
	c.setJSON(ctx, statsKey(tenantID, timeframe), stats, ttl)
}

// GetStyleProfile returns a cached style profile or a miss.
func (c *RedisCache) GetStyleProfile(ctx context.Context, tenantID uuid.UUID) (*domain.StyleProfile, bool) {
	var profile domain.StyleProfile
	if !c.getJSON(ctx, styleKey(tenantID), &profile) {
		return nil, false
	}
	return &profile, true
}

// SetStyleProfile caches a style profile with the given TTL.
func (c *RedisCache) SetStyleProfile(ctx context.Context, tenantID uuid.UUID, profile *domain.StyleProfile, ttl time.Duration) {
	c.setJSON(ctx, styleKey(tenantID), profile, ttl)
}

func (c *RedisCache) getJSON(ctx context.Context, key string, dest any) bool {
	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.log.Warn().Str("key", key).Err(err).Msg("cache read failed")
		return false
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		c.log.Warn().Str("key", key).Err(err).Msg("cache entry unparsable")
		return false
	}
	return true
}

func (c *RedisCache) setJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.log.Warn().Str("key", key).Err(err).Msg("cache write failed")
	}
}

// Compile-time interface check
var _ out.StatsCache = (*RedisCache)(nil)
