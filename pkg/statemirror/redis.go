package statemirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/illmade-knight/go-presence/pkg/presence"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds connection settings for the Redis-backed mirror.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// EntryTTL expires idle entries so a uri nobody updates anymore does not
	// linger forever. Zero means no expiry.
	EntryTTL time.Duration
}

// RedisMirror is a distributed implementation of Mirror using Redis. Entries
// are stored as JSON under the uri key.
type RedisMirror struct {
	redisClient *redis.Client
	logger      zerolog.Logger
	ttl         time.Duration
}

// NewRedisMirror creates and connects a new RedisMirror.
func NewRedisMirror(ctx context.Context, cfg *RedisConfig, logger zerolog.Logger) (*RedisMirror, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis for state mirror: %w", err)
	}
	logger.Info().Str("redis_address", cfg.Addr).Msg("Successfully connected to Redis for state mirror.")

	return &RedisMirror{
		redisClient: rdb,
		logger:      logger.With().Str("component", "RedisMirror").Logger(),
		ttl:         cfg.EntryTTL,
	}, nil
}

// Set marshals the state to JSON and stores it in Redis with the configured TTL.
func (m *RedisMirror) Set(ctx context.Context, uri string, state presence.State) error {
	jsonData, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state for uri %s: %w", uri, err)
	}
	if err := m.redisClient.Set(ctx, uri, jsonData, m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set state in redis for uri %s: %w", uri, err)
	}
	return nil
}

// Fetch retrieves and unmarshals the state for a uri.
func (m *RedisMirror) Fetch(ctx context.Context, uri string) (presence.State, error) {
	cachedData, err := m.redisClient.Get(ctx, uri).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return presence.State{}, fmt.Errorf("%q: %w", uri, ErrNotFound)
		}
		return presence.State{}, fmt.Errorf("redis get failed for uri %s: %w", uri, err)
	}
	var state presence.State
	if err := json.Unmarshal([]byte(cachedData), &state); err != nil {
		return presence.State{}, fmt.Errorf("failed to unmarshal state for uri %s: %w", uri, err)
	}
	return state, nil
}

// Delete removes the entry for a uri.
func (m *RedisMirror) Delete(ctx context.Context, uri string) error {
	if err := m.redisClient.Del(ctx, uri).Err(); err != nil {
		return fmt.Errorf("redis del failed for uri %s: %w", uri, err)
	}
	return nil
}

// Close closes the Redis client connection.
func (m *RedisMirror) Close() error {
	if m.redisClient != nil {
		return m.redisClient.Close()
	}
	return nil
}
