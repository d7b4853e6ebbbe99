package cache

import (
	"context"
	"sync"
	"time"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is the single-process stand-in for RedisCache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

var (
	_ ports.ChallengeStore = (*MemoryCache)(nil)
	_ ports.TokenBlacklist = (*MemoryCache)(nil)
)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]entry), now: time.Now}
}

func (c *MemoryCache) SaveChallenge(_ context.Context, id, answer string, ttl time.Duration) error {
	c.set(captchaKeyPrefix+id, answer, ttl)
	return nil
}

func (c *MemoryCache) TakeChallenge(_ context.Context, id string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.live(captchaKeyPrefix + id)
	delete(c.entries, captchaKeyPrefix+id)
	return e.value, ok, nil
}

func (c *MemoryCache) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	c.set(blacklistKeyPrefix+tokenID, "revoked", ttl)
	return nil
}

func (c *MemoryCache) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.live(blacklistKeyPrefix + tokenID)
	return ok, nil
}

func (c *MemoryCache) set(key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.entries[key] = entry{value: value, expiresAt: exp}
}

// live must be called with mu held.
func (c *MemoryCache) live(key string) (entry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return entry{}, false
	}
	return e, true
}
