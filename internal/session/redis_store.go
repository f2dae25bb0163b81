package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "session:",
		now:    time.Now,
	}
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *RedisStore) userKey(userID string) string {
	return r.prefix + "user:" + userID
}

func (r *RedisStore) Create(ctx context.Context, s Session) error {
	if s.SessionID == "" || s.UserID == "" {
		return fmt.Errorf("session: missing session_id or user_id")
	}

	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("session: expires_at must be in the future")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}

	// The per-user index lets a password change revoke every live session.
	// Sessions share one TTL, so the newest session always carries the
	// latest expiry and the index can follow it.
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.key(s.SessionID), data, ttl)
		p.SAdd(ctx, r.userKey(s.UserID), s.SessionID)
		p.Expire(ctx, r.userKey(s.UserID), ttl)
		return nil
	})
	return err
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, nil
	}

	val, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}

	if s.Expired(r.now()) {
		_ = r.Delete(ctx, sessionID)
		return nil, nil
	}

	return &s, nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	val, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	var s Session
	if err := json.Unmarshal(val, &s); err == nil && s.UserID != "" {
		if err := r.client.SRem(ctx, r.userKey(s.UserID), sessionID).Err(); err != nil {
			return err
		}
	}

	return r.client.Del(ctx, r.key(sessionID)).Err()
}

func (r *RedisStore) DeleteAllForUser(ctx context.Context, userID string) error {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.key(id))
	}
	keys = append(keys, r.userKey(userID))

	return r.client.Del(ctx, keys...).Err()
}
