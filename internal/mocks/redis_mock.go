package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockRedisClient is an in-memory stand-in for the Redis commands the cache
// adapter issues. Expired keys behave as missing.
type MockRedisClient struct {
	mu      sync.Mutex
	values  map[string]string
	expires map[string]time.Time

	// Error injection
	SetError    error
	GetDelError error
	ExistsError error
	PingError   error
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		values:  make(map[string]string),
		expires: make(map[string]time.Time),
	}
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if m.SetError != nil {
		cmd.SetErr(m.SetError)
		return cmd
	}
	s, _ := value.(string)
	m.SetKey(key, s, expiration)
	cmd.SetVal("OK")
	return cmd
}

// GetDel returns the value and removes the key, like GETDEL.
func (m *MockRedisClient) GetDel(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if m.GetDelError != nil {
		cmd.SetErr(m.GetDelError)
		return cmd
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.live(key)
	delete(m.values, key)
	delete(m.expires, key)
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (m *MockRedisClient) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if m.ExistsError != nil {
		cmd.SetErr(m.ExistsError)
		return cmd
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := m.live(key); ok {
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (m *MockRedisClient) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if m.PingError != nil {
		cmd.SetErr(m.PingError)
		return cmd
	}
	cmd.SetVal("PONG")
	return cmd
}

// HasKey reports whether key is present and unexpired.
func (m *MockRedisClient) HasKey(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live(key)
	return ok
}

// SetKey stores key directly, bypassing error injection.
func (m *MockRedisClient) SetKey(key, value string, expiration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	if expiration > 0 {
		m.expires[key] = time.Now().Add(expiration)
	} else {
		delete(m.expires, key)
	}
}

// live must be called with mu held.
func (m *MockRedisClient) live(key string) (string, bool) {
	val, ok := m.values[key]
	if !ok {
		return "", false
	}
	if exp, has := m.expires[key]; has && !time.Now().Before(exp) {
		return "", false
	}
	return val, true
}
