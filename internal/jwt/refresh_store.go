package jwt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// RefreshStore keeps issued refresh tokens until they expire or are revoked.
type RefreshStore interface {
	Save(ctx context.Context, token string, op Operator, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (Operator, error)
	Touch(ctx context.Context, token string, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
}

const refreshKeyPrefix = "refresh:"

type RedisRefreshStore struct {
	client *redis.Client
}

func NewRedisRefreshStore(client *redis.Client) *RedisRefreshStore {
	return &RedisRefreshStore{client: client}
}

func (s *RedisRefreshStore) Save(ctx context.Context, token string, op Operator, ttl time.Duration) error {
	data, err := json.Marshal(op)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, refreshKeyPrefix+token, data, ttl).Err()
}

func (s *RedisRefreshStore) Lookup(ctx context.Context, token string) (Operator, error) {
	val, err := s.client.Get(ctx, refreshKeyPrefix+token).Result()
	if err == redis.Nil {
		return Operator{}, ErrInvalidRefreshToken
	} else if err != nil {
		return Operator{}, err
	}

	var op Operator
	if err := json.Unmarshal([]byte(val), &op); err != nil {
		return Operator{}, fmt.Errorf("invalid token data: %w", err)
	}
	return op, nil
}

func (s *RedisRefreshStore) Touch(ctx context.Context, token string, ttl time.Duration) error {
	return s.client.Expire(ctx, refreshKeyPrefix+token, ttl).Err()
}

func (s *RedisRefreshStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, refreshKeyPrefix+token).Err()
}

// MemoryRefreshStore is used when no redis is configured. Tokens do not survive
// a restart.
type MemoryRefreshStore struct {
	mu     sync.Mutex
	now    func() time.Time
	tokens map[string]memoryRefresh
}

type memoryRefresh struct {
	op      Operator
	expires time.Time
}

func NewMemoryRefreshStore(now func() time.Time) *MemoryRefreshStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryRefreshStore{now: now, tokens: make(map[string]memoryRefresh)}
}

func (s *MemoryRefreshStore) Save(ctx context.Context, token string, op Operator, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = memoryRefresh{op: op, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryRefreshStore) Lookup(ctx context.Context, token string) (Operator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[token]
	if !ok || !s.now().Before(entry.expires) {
		delete(s.tokens, token)
		return Operator{}, ErrInvalidRefreshToken
	}
	return entry.op, nil
}

func (s *MemoryRefreshStore) Touch(ctx context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[token]
	if !ok {
		return ErrInvalidRefreshToken
	}
	entry.expires = s.now().Add(ttl)
	s.tokens[token] = entry
	return nil
}

func (s *MemoryRefreshStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}
