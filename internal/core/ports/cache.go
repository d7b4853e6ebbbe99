package ports

import (
	"context"
	"time"
)

// ChallengeStore keeps issued CAPTCHA answers until they are used or expire.
type ChallengeStore interface {
	SaveChallenge(ctx context.Context, id, answer string, ttl time.Duration) error
	// TakeChallenge returns the answer and forgets it. ok is false when the
	// challenge is unknown or expired.
	TakeChallenge(ctx context.Context, id string) (answer string, ok bool, err error)
}

// TokenBlacklist records revoked session tokens until they would have expired.
type TokenBlacklist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
