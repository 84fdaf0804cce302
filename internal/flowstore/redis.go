package flowstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix  = "flow:"
	DefaultTTL = 7 * 24 * time.Hour
)

// RedisStore keeps one hash per conversation. Every write refreshes the hash TTL so
// abandoned conversations expire on their own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func Key(conversationID string) string {
	return keyPrefix + conversationID
}

func (r *RedisStore) Get(ctx context.Context, conversationID string) (map[string]string, error) {
	fields, err := r.client.HGetAll(ctx, Key(conversationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read flow state %s: %w", conversationID, err)
	}
	return fields, nil
}

func (r *RedisStore) Set(ctx context.Context, conversationID string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	key := Key(conversationID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, values)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write flow state %s: %w", conversationID, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, conversationID string, fields ...string) error {
	key := Key(conversationID)
	var err error
	if len(fields) == 0 {
		err = r.client.Del(ctx, key).Err()
	} else {
		err = r.client.HDel(ctx, key, fields...).Err()
	}
	if err != nil {
		return fmt.Errorf("delete flow state %s: %w", conversationID, err)
	}
	return nil
}
