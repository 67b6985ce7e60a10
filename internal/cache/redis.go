package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/prezenta-go-api/internal/models"
)

const redisTokenKeyPrefix = "qr:token:"

// RedisTokenCache stores token records in Redis with a per-key TTL.
type RedisTokenCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisTokenCache builds a Redis-backed TokenCache.
func NewRedisTokenCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisTokenCache {
	return &RedisTokenCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "redis_token_cache").Logger(),
	}
}

func (c *RedisTokenCache) Get(ctx context.Context, token string) (models.QRToken, bool) {
	payload, err := c.client.Get(ctx, redisTokenKeyPrefix+token).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("failed to read token cache")
		}
		return models.QRToken{}, false
	}

	var record models.QRToken
	if err := json.Unmarshal(payload, &record); err != nil {
		c.logger.Warn().Err(err).Msg("discarding malformed token cache entry")
		return models.QRToken{}, false
	}
	return record, true
}

func (c *RedisTokenCache) Put(ctx context.Context, record models.QRToken) {
	payload, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisTokenKeyPrefix+record.Token, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to store token cache entry")
	}
}
