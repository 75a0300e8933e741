package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/feltkit/holdem/internal/engine"
)

// RedisStore keeps snapshots under <prefix><gameID> keys.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(addr, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	if prefix == "" {
		prefix = "holdem:snapshot:"
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) key(gameID string) string {
	return s.prefix + gameID
}

// Save stores the snapshot without expiry; Delete removes finished games.
func (s *RedisStore) Save(ctx context.Context, gameID string, snap engine.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", gameID, err)
	}
	if err := s.client.Set(ctx, s.key(gameID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", gameID, err)
	}
	return nil
}

// Load reads and decodes one snapshot.
func (s *RedisStore) Load(ctx context.Context, gameID string) (engine.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key(gameID)).Bytes()
	if err == redis.Nil {
		return engine.Snapshot{}, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("redis get %s: %w", gameID, err)
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return engine.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", gameID, err)
	}
	return snap, nil
}

// List scans the keyspace for stored game ids.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return ids, nil
}

// Delete removes a snapshot; missing keys are not an error.
func (s *RedisStore) Delete(ctx context.Context, gameID string) error {
	if err := s.client.Del(ctx, s.key(gameID)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", gameID, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
