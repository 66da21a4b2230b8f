package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erazemk/lostfound/internal/auth"
)

const redisKeyPrefix = "lostfound:session:"

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

// RedisTokens keeps sealed API tokens in Redis with a TTL, for deployments
// that run several frontend processes behind one load balancer.
type RedisTokens struct {
	Client *redis.Client
	Sealer *auth.Sealer
	TTL    time.Duration
}

// Get returns the API token for a browser session, or "" if there is none.
func (s *RedisTokens) Get(ctx context.Context, sessionID string) (string, error) {
	sealed, err := s.Client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting session token: %w", err)
	}
	plain, err := s.Sealer.Open(sealed)
	if err != nil {
		return "", nil
	}
	return string(plain), nil
}

// Put seals and stores the API token for a browser session.
func (s *RedisTokens) Put(ctx context.Context, sessionID, token string) error {
	sealed, err := s.Sealer.Seal([]byte(token))
	if err != nil {
		return err
	}
	if err := s.Client.Set(ctx, redisKeyPrefix+sessionID, sealed, s.TTL).Err(); err != nil {
		return fmt.Errorf("storing session token: %w", err)
	}
	return nil
}

// Delete removes the API token for a browser session.
func (s *RedisTokens) Delete(ctx context.Context, sessionID string) error {
	if err := s.Client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("deleting session token: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisTokens) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}
