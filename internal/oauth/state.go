package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Veein-web/AI-Background-Remover/internal/security"
)

const stateKeyPrefix = "oauth:state:"

type stateClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
}

type RedisStateStore struct {
	client stateClient
	ttl    time.Duration
}

func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{client: client, ttl: ttl}
}

func (s *RedisStateStore) Issue(ctx context.Context) (string, error) {
	state, err := security.NewNonce(24)
	if err != nil {
		return "", err
	}
	ok, err := s.client.SetNX(ctx, stateKeyPrefix+state, "1", s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	if !ok {
		return "", errors.New("oauth state collision")
	}
	return state, nil
}

// Consume succeeds at most once per issued state.
func (s *RedisStateStore) Consume(ctx context.Context, state string) error {
	if state == "" {
		return ErrStateMismatch
	}
	_, err := s.client.GetDel(ctx, stateKeyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return ErrStateMismatch
	}
	if err != nil {
		return fmt.Errorf("consume oauth state: %w", err)
	}
	return nil
}
