package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/adapters/cache"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/mocks"
)

func TestRedisCache_ChallengeIsSingleUse(t *testing.T) {
	client := mocks.NewMockRedisClient()
	c := cache.NewRedisCache(client)
	ctx := context.Background()

	if err := c.SaveChallenge(ctx, "abc", "K7PQ2M", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !client.HasKey("captcha:abc") {
		t.Fatal("expected captcha key to be stored with prefix")
	}

	answer, ok, err := c.TakeChallenge(ctx, "abc")
	if err != nil || !ok || answer != "K7PQ2M" {
		t.Fatalf("expected (K7PQ2M, true, nil), got (%q, %v, %v)", answer, ok, err)
	}

	_, ok, err = c.TakeChallenge(ctx, "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected second take to find nothing")
	}
}

func TestRedisCache_MissingChallenge(t *testing.T) {
	c := cache.NewRedisCache(mocks.NewMockRedisClient())

	_, ok, err := c.TakeChallenge(context.Background(), "nope")
	if err != nil {
		t.Fatalf("missing key should not be an error: %v", err)
	}
	if ok {
		t.Error("expected no challenge")
	}
}

func TestRedisCache_RevokedTokens(t *testing.T) {
	client := mocks.NewMockRedisClient()
	c := cache.NewRedisCache(client)
	ctx := context.Background()

	revoked, err := c.IsRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("expected fresh token not revoked, got (%v, %v)", revoked, err)
	}

	if err := c.Revoke(ctx, "jti-1", time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !client.HasKey("blacklist:jti-1") {
		t.Error("expected blacklist key")
	}

	revoked, err = c.IsRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Errorf("expected revoked token, got (%v, %v)", revoked, err)
	}
}

func TestRedisCache_Errors(t *testing.T) {
	client := mocks.NewMockRedisClient()
	c := cache.NewRedisCache(client)
	ctx := context.Background()
	boom := errors.New("connection reset")

	client.SetError = boom
	if err := c.SaveChallenge(ctx, "a", "b", time.Minute); !errors.Is(err, boom) {
		t.Errorf("expected wrapped set error, got %v", err)
	}

	client.GetDelError = boom
	if _, _, err := c.TakeChallenge(ctx, "a"); !errors.Is(err, boom) {
		t.Errorf("expected wrapped getdel error, got %v", err)
	}

	client.PingError = boom
	if err := c.Ping(ctx); !errors.Is(err, boom) {
		t.Errorf("expected ping error, got %v", err)
	}
}
