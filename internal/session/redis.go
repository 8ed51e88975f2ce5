package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session as a Redis hash with a server-side TTL.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(id string) string {
	return "session:" + id
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis session read failed: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}

	sess := &Session{
		ID:        id,
		CSRFToken: data["csrf_token"],
		UserAgent: data["user_agent"],
		IPAddress: data["ip_address"],
	}
	if raw := data["token_issued_at"]; raw != "" {
		issuedAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt session timestamp: %w", err)
		}
		sess.TokenIssuedAt = issuedAt
	}
	return sess, nil
}

func (s *RedisStore) Put(ctx context.Context, sess *Session, ttl time.Duration) error {
	fields := map[string]any{
		"csrf_token": sess.CSRFToken,
		"user_agent": sess.UserAgent,
		"ip_address": sess.IPAddress,
	}
	if !sess.TokenIssuedAt.IsZero() {
		fields["token_issued_at"] = sess.TokenIssuedAt.Format(time.RFC3339)
	} else {
		fields["token_issued_at"] = ""
	}

	key := sessionKey(sess.ID)
	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis session write failed: %w", err)
	}
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("redis session expire failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKey(id)).Err()
}
