package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/visionary-dev/visionary/internal/document"
	"github.com/visionary-dev/visionary/pkg/chat"
)

// RedisStore persists the workspace in Redis, suitable for the server mode
// where several frontends share one workspace.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for all workspace keys (default: "visionary:").
	Prefix string
	// TTL is the workspace expiry duration (0 = never expire).
	TTL time.Duration
}

// NewRedisStore creates a Redis-backed store and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStoreFromClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisStoreFromClient creates a Redis store from an existing client.
// This is useful for testing with miniredis.
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "visionary:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RedisStore) historyKey() string    { return r.prefix + "history" }
func (r *RedisStore) documentKey() string   { return r.prefix + "document" }
func (r *RedisStore) credentialKey() string { return r.prefix + "credential" }

// LoadHistory implements Store.
func (r *RedisStore) LoadHistory(ctx context.Context) ([]chat.Message, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	data, err := r.client.Get(ctx, r.historyKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get history: %w", err)
	}

	var messages []chat.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	return messages, nil
}

// SaveHistory implements Store.
func (r *RedisStore) SaveHistory(ctx context.Context, messages []chat.Message) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := r.client.Set(ctx, r.historyKey(), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// LoadDocument implements Store.
func (r *RedisStore) LoadDocument(ctx context.Context) (document.State, error) {
	if err := r.checkOpen(); err != nil {
		return document.State{}, err
	}

	data, err := r.client.Get(ctx, r.documentKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return document.State{}, ErrNotFound
		}
		return document.State{}, fmt.Errorf("get document: %w", err)
	}

	var state document.State
	if err := json.Unmarshal(data, &state); err != nil {
		return document.State{}, fmt.Errorf("unmarshal document: %w", err)
	}
	return state, nil
}

// SaveDocument implements Store.
func (r *RedisStore) SaveDocument(ctx context.Context, state document.State) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := r.client.Set(ctx, r.documentKey(), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// LoadCredential implements Store.
func (r *RedisStore) LoadCredential(ctx context.Context) (string, error) {
	if err := r.checkOpen(); err != nil {
		return "", err
	}

	key, err := r.client.Get(ctx, r.credentialKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get credential: %w", err)
	}
	return key, nil
}

// SaveCredential implements Store.
func (r *RedisStore) SaveCredential(ctx context.Context, key string) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.credentialKey(), key, r.ttl).Err(); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Reset implements Store.
func (r *RedisStore) Reset(ctx context.Context) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	if err := r.client.Del(ctx, r.historyKey(), r.documentKey()).Err(); err != nil {
		return fmt.Errorf("reset workspace: %w", err)
	}
	return nil
}

// Close implements Store.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.client.Close()
}

// Ping checks if the Redis connection is alive.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) checkOpen() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrStoreClosed
	}
	return nil
}
