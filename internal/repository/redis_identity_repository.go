package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisIdentityRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisIdentityRepository stores identities as plain keys. A zero ttl
// keeps records until logout.
func NewRedisIdentityRepository(client *redis.Client, ttl time.Duration) IdentityRepository {
	return &redisIdentityRepository{client: client, ttl: ttl}
}

func (r *redisIdentityRepository) Load(ctx context.Context, key string) ([]byte, error) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return payload, nil
}

func (r *redisIdentityRepository) Save(ctx context.Context, key string, payload []byte) error {
	return r.client.Set(ctx, key, payload, r.ttl).Err()
}

func (r *redisIdentityRepository) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
