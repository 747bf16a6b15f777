package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisPresenceStore tracks which users currently hold an open websocket
// session. Each session writes its own member so that closing one tab does
// not mark a user with a second tab offline, and the TTL sweeps up sessions
// that died without a clean disconnect.
type RedisPresenceStore struct {
	client *redis.Client
}

func NewRedisPresenceStore(client *redis.Client) *RedisPresenceStore {
	return &RedisPresenceStore{client: client}
}

func presenceKey(userID uuid.UUID) string {
	return "timebank:presence:" + userID.String()
}

func (s *RedisPresenceStore) MarkOnline(ctx context.Context, userID uuid.UUID, sessionID string, ttl time.Duration) error {
	key := presenceKey(userID)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, key, sessionID)
		p.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func (s *RedisPresenceStore) MarkOffline(ctx context.Context, userID uuid.UUID, sessionID string) error {
	return s.client.SRem(ctx, presenceKey(userID), sessionID).Err()
}

func (s *RedisPresenceStore) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := s.client.SCard(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
