package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound is returned when a refresh token is unknown or expired.
var ErrTokenNotFound = errors.New("refresh token not found")

// TokenStore keeps refresh tokens. Consume is single-use: a token can be
// exchanged only once.
type TokenStore interface {
	Save(ctx context.Context, token, userID string, ttl time.Duration) error
	Consume(ctx context.Context, token string) (userID string, err error)
	Revoke(ctx context.Context, token string) error
}

const refreshKeyPrefix = "session:refresh:"

// RedisTokenStore stores refresh tokens as plain keys with a TTL.
type RedisTokenStore struct {
	client redis.UniversalClient
}

func NewRedisTokenStore(client redis.UniversalClient) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) Save(ctx context.Context, token, userID string, ttl time.Duration) error {
	return s.client.Set(ctx, refreshKeyPrefix+token, userID, ttl).Err()
}

func (s *RedisTokenStore) Consume(ctx context.Context, token string) (string, error) {
	userID, err := s.client.GetDel(ctx, refreshKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *RedisTokenStore) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, refreshKeyPrefix+token).Err()
}

// MemoryTokenStore is the single-process fallback used when Redis is unavailable.
type MemoryTokenStore struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

func NewMemoryTokenStore(cleanupInterval time.Duration) *MemoryTokenStore {
	return &MemoryTokenStore{cache: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (s *MemoryTokenStore) Save(_ context.Context, token, userID string, ttl time.Duration) error {
	s.cache.Set(refreshKeyPrefix+token, userID, ttl)
	return nil
}

func (s *MemoryTokenStore) Consume(_ context.Context, token string) (string, error) {
	key := refreshKeyPrefix + token

	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.cache.Get(key)
	if !ok {
		return "", ErrTokenNotFound
	}
	s.cache.Delete(key)
	userID, _ := value.(string)
	if userID == "" {
		return "", ErrTokenNotFound
	}
	return userID, nil
}

func (s *MemoryTokenStore) Revoke(_ context.Context, token string) error {
	s.cache.Delete(refreshKeyPrefix + token)
	return nil
}
