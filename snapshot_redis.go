package lendkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotStore keeps session snapshots in Redis as JSON. Snapshots
// expire after the configured TTL, which should match the session lifetime.
type RedisSnapshotStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// DefaultSnapshotTTL is used when NewRedisSnapshotStore gets a non-positive TTL.
const DefaultSnapshotTTL = 12 * time.Hour

// NewRedisSnapshotStore creates a store over a Redis client.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	snapshots := lendkit.NewRedisSnapshotStore(client, 8*time.Hour)
func NewRedisSnapshotStore(client redis.UniversalClient, ttl time.Duration) *RedisSnapshotStore {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &RedisSnapshotStore{client: client, prefix: "lendkit:snapshot:", ttl: ttl}
}

func (s *RedisSnapshotStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// Put implements SnapshotStore.
func (s *RedisSnapshotStore) Put(ctx context.Context, sessionID string, snapshot RoleSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("lendkit: encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), payload, s.ttl).Err(); err != nil {
		return storeError("put snapshot", err)
	}
	return nil
}

// Get implements SnapshotStore.
func (s *RedisSnapshotStore) Get(ctx context.Context, sessionID string) (*RoleSnapshot, error) {
	payload, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, storeError("get snapshot", err)
	}
	var snapshot RoleSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("lendkit: decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// Delete implements SnapshotStore.
func (s *RedisSnapshotStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return storeError("delete snapshot", err)
	}
	return nil
}
