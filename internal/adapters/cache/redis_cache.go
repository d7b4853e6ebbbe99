package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/config"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

const (
	captchaKeyPrefix   = "captcha:"
	blacklistKeyPrefix = "blacklist:"
)

// RedisClient is the subset of *redis.Client the cache needs.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisCache stores CAPTCHA answers and revoked token IDs with expiry.
type RedisCache struct {
	client RedisClient
	cb     *gobreaker.CircuitBreaker
}

var (
	_ ports.ChallengeStore = (*RedisCache)(nil)
	_ ports.TokenBlacklist = (*RedisCache)(nil)
)

func NewRedisCache(client RedisClient) *RedisCache {
	return &RedisCache{
		client: client,
		cb:     config.NewCircuitBreaker("Redis-Cache"),
	}
}

func (c *RedisCache) SaveChallenge(ctx context.Context, id, answer string, ttl time.Duration) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, captchaKeyPrefix+id, answer, ttl).Err()
	})
	return errors.Wrap(err, "save captcha")
}

// TakeChallenge uses GETDEL so an answer can be checked once.
func (c *RedisCache) TakeChallenge(ctx context.Context, id string) (string, bool, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		answer, err := c.client.GetDel(ctx, captchaKeyPrefix+id).Result()
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return answer, err
	})
	if err != nil {
		return "", false, errors.Wrap(err, "take captcha")
	}
	answer := out.(string)
	return answer, answer != "", nil
}

func (c *RedisCache) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, blacklistKeyPrefix+tokenID, "revoked", ttl).Err()
	})
	return errors.Wrap(err, "revoke token")
}

func (c *RedisCache) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.Exists(ctx, blacklistKeyPrefix+tokenID).Result()
	})
	if err != nil {
		return false, errors.Wrap(err, "check revocation")
	}
	return out.(int64) > 0, nil
}

// Ping is used by the readiness probe.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
