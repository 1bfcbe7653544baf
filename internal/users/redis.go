package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "mission:users"

// RedisDirectory keeps every name in a single hash so that several server
// processes behind one load balancer resolve the same names.
type RedisDirectory struct {
	client redis.Cmdable
	key    string
}

func NewRedisDirectory(client redis.Cmdable, key string) *RedisDirectory {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisDirectory{client: client, key: key}
}

func (r *RedisDirectory) SetName(ctx context.Context, id, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := r.client.HSet(ctx, r.key, id, name).Err(); err != nil {
		return fmt.Errorf("set name for %s: %w", id, err)
	}
	return nil
}

func (r *RedisDirectory) Name(ctx context.Context, id string) (string, error) {
	name, err := r.client.HGet(ctx, r.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrUnknownUser
	}
	if err != nil {
		return "", fmt.Errorf("get name for %s: %w", id, err)
	}
	return name, nil
}

func (r *RedisDirectory) Remove(ctx context.Context, id string) error {
	if err := r.client.HDel(ctx, r.key, id).Err(); err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	return nil
}
