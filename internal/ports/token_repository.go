package ports

import (
	"context"
	"time"
)

// TokenRevocationStore is the logout blacklist. An entry lives exactly as
// long as the token it shadows, so the store stays bounded by the set of
// still-valid credentials.
type TokenRevocationStore interface {
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
	Revoke(ctx context.Context, tokenHash string, expiration time.Duration) error
}
