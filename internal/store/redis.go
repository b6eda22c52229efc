package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection with a ping.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

const sessionKeyPrefix = "chat:session:"

// RedisContextStore keeps each session context as a JSON document whose TTL is
// refreshed on every write.
type RedisContextStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisContextStore(client *redis.Client, ttl time.Duration) *RedisContextStore {
	return &RedisContextStore{client: client, ttl: ttl}
}

func (s *RedisContextStore) Get(ctx context.Context, sessionID string) (SessionContext, error) {
	b, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return SessionContext{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session context: %w", err)
	}
	sc := SessionContext{}
	if err := json.Unmarshal(b, &sc); err != nil {
		return nil, fmt.Errorf("failed to decode session context: %w", err)
	}
	return sc, nil
}

func (s *RedisContextStore) Set(ctx context.Context, sessionID string, sc SessionContext) error {
	if sc == nil {
		sc = SessionContext{}
	}
	b, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to encode session context: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+sessionID, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session context: %w", err)
	}
	return nil
}
