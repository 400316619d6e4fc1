package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nostr-query/internal/types"
)

const redisKeyPrefix = "nostrq:profile:"

// Redis is a shared profile backend for deployments where several page
// sessions (or processes) should benefit from each other's lookups.
// Negative entries are stored as the literal "null".
type Redis struct {
	client *redis.Client
}

// NewRedis connects and verifies the server is reachable.
func NewRedis(addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) GetProfile(ctx context.Context, pubkey string) (*types.ProfileInfo, bool, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+pubkey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var profile *types.ProfileInfo
	if err := json.Unmarshal(data, &profile); err != nil {
		// Treat a corrupt entry as a miss; it will be overwritten.
		return nil, false, nil
	}
	return profile, true, nil
}

func (r *Redis) SetProfile(ctx context.Context, pubkey string, profile *types.ProfileInfo, ttl time.Duration) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("redis marshal: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+pubkey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
