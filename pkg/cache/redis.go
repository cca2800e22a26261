package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/scottdavis/inferpipe/pkg/errors"
)

// RedisStore implements Store using Redis as the backend, for sharing a
// result cache between processes.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a new Redis-backed result cache.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to connect to Redis"),
			errors.Fields{"addr": addr},
		)
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Store(key string, value map[string]any, opts ...StoreOption) error {
	options := &StoreOptions{}
	for _, opt := range opts {
		opt(options)
	}

	jsonValue, err := json.Marshal(value)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to marshal result to JSON"),
			errors.Fields{"key": key},
		)
	}

	ctx := context.Background()
	if err := r.client.Set(ctx, key, jsonValue, options.TTL).Err(); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to store result in Redis"),
			errors.Fields{"key": key, "ttl": options.TTL},
		)
	}
	return nil
}

func (r *RedisStore) Retrieve(key string) (map[string]any, error) {
	ctx := context.Background()

	raw, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "key not found in result cache"),
			errors.Fields{"key": key},
		)
	}
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to retrieve result from Redis"),
			errors.Fields{"key": key},
		)
	}

	value := make(map[string]any)
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidResponse, "failed to unmarshal cached result"),
			errors.Fields{"key": key},
		)
	}
	return value, nil
}

func (r *RedisStore) Clear() error {
	if err := r.client.FlushDB(context.Background()).Err(); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to clear Redis result cache")
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
