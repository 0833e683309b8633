package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// PreferenceRepository keeps gradebook preference documents in Redis without
// expiry.
type PreferenceRepository struct {
	client *redis.Client
}

// NewPreferenceRepository constructs the repository.
func NewPreferenceRepository(client *redis.Client) *PreferenceRepository {
	return &PreferenceRepository{client: client}
}

// Get returns the stored document or nil when the key is absent.
func (r *PreferenceRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if r.client == nil {
		return nil, nil
	}
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, nil
}

// Set overwrites the stored document.
func (r *PreferenceRepository) Set(ctx context.Context, key string, value []byte) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
