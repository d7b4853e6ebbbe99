package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCache_ChallengeExpiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_ = c.SaveChallenge(ctx, "live", "AAAAAA", time.Minute)
	_ = c.SaveChallenge(ctx, "stale", "BBBBBB", time.Minute)

	if answer, ok, _ := c.TakeChallenge(ctx, "live"); !ok || answer != "AAAAAA" {
		t.Fatalf("expected live challenge, got (%q, %v)", answer, ok)
	}
	if _, ok, _ := c.TakeChallenge(ctx, "live"); ok {
		t.Error("challenge must be single-use")
	}

	now = now.Add(time.Minute)
	if _, ok, _ := c.TakeChallenge(ctx, "stale"); ok {
		t.Error("expired challenge must not be returned")
	}
}

func TestMemoryCache_Revocation(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_ = c.Revoke(ctx, "jti", time.Hour)
	if revoked, _ := c.IsRevoked(ctx, "jti"); !revoked {
		t.Fatal("expected token to be revoked")
	}
	if revoked, _ := c.IsRevoked(ctx, "other"); revoked {
		t.Error("unrelated token reported revoked")
	}

	// Past the token lifetime the entry is dropped.
	now = now.Add(2 * time.Hour)
	if revoked, _ := c.IsRevoked(ctx, "jti"); revoked {
		t.Error("expected revocation entry to expire")
	}
	if len(c.entries) != 0 {
		t.Errorf("expected expired entry to be evicted, %d left", len(c.entries))
	}
}
