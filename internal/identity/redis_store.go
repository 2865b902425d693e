// AngelaMos | 2026
// redis_store.go

package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix      = "session:"
	userSessionsPrefix = "user_sessions:"
	usedTokenPrefix    = "used_token:"
)

// RedisStore keeps sessions and the consumed-token ledger in Redis. Keys
// expire with the session, so no sweeper is needed.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) SaveSession(
	ctx context.Context,
	tokenHash string,
	sess *Session,
) error {
	if tokenHash == "" || sess.ID == "" {
		return errors.New("save session: empty key")
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return errors.New("save session: already expired")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	indexKey := userSessionsPrefix + sess.UserID

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionPrefix+tokenHash, data, ttl)
		pipe.SAdd(ctx, indexKey, tokenHash)
		pipe.Expire(ctx, indexKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

func (s *RedisStore) GetSession(
	ctx context.Context,
	tokenHash string,
) (*Session, error) {
	if tokenHash == "" {
		return nil, ErrSessionNotFound
	}

	data, err := s.client.Get(ctx, sessionPrefix+tokenHash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	if sess.Expired(time.Now()) {
		if err := s.DeleteSession(ctx, tokenHash); err != nil {
			return nil, fmt.Errorf("cleanup expired session: %w", err)
		}
		return nil, ErrSessionNotFound
	}

	return &sess, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, tokenHash string) error {
	if tokenHash == "" {
		return nil
	}

	if err := s.client.Del(ctx, sessionPrefix+tokenHash).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteUserSessions(ctx context.Context, userID string) error {
	indexKey := userSessionsPrefix + userID

	hashes, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("list user sessions: %w", err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, sessionPrefix+h)
	}
	keys = append(keys, indexKey)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

// ConsumeToken records tokenID as used and reports whether this call was
// the first to do so.
func (s *RedisStore) ConsumeToken(
	ctx context.Context,
	tokenID string,
	ttl time.Duration,
) (bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}

	ok, err := s.client.SetNX(ctx, usedTokenPrefix+tokenID, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("consume token: %w", err)
	}
	return ok, nil
}
