package cache

import (
	"context"
	"time"

	"nostr-query/internal/types"
)

// Backend is an optional shared profile store layered behind the
// per-session cache. A nil profile with found=true is a cached negative:
// "no profile exists for this pubkey", kept so absence is not re-fetched.
type Backend interface {
	GetProfile(ctx context.Context, pubkey string) (profile *types.ProfileInfo, found bool, err error)
	SetProfile(ctx context.Context, pubkey string, profile *types.ProfileInfo, ttl time.Duration) error
	Close() error
}
