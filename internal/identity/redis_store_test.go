// AngelaMos | 2026
// redis_store_test.go

package identity

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client), mr
}

func testSession(id, userID string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UserAgent: "go-test",
		IPAddress: "203.0.113.9",
	}
}

func TestRedisStore_SaveAndGet(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	sess := testSession("s-1", "u-1", time.Hour)
	require.NoError(t, store.SaveSession(ctx, "hash-1", sess))

	got, err := store.GetSession(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, "s-1", got.ID)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, "203.0.113.9", got.IPAddress)
	assert.WithinDuration(t, sess.ExpiresAt, got.ExpiresAt, time.Second)

	assert.True(t, mr.Exists(sessionPrefix+"hash-1"))
	members, err := mr.SMembers(userSessionsPrefix + "u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"hash-1"}, members)
	assert.Positive(t, mr.TTL(sessionPrefix+"hash-1"))
}

func TestRedisStore_UnknownSession(t *testing.T) {
	store, _ := newRedisStore(t)

	_, err := store.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = store.GetSession(context.Background(), "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_SessionExpiresWithKey(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, "hash-ttl", testSession("s-ttl", "u-1", time.Minute)))
	mr.FastForward(2 * time.Minute)

	_, err := store.GetSession(ctx, "hash-ttl")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_ExpiredPayloadIsRemoved(t *testing.T) {
	store, mr := newRedisStore(t)

	stale := testSession("s-old", "u-1", -time.Minute)
	raw, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, mr.Set(sessionPrefix+"hash-old", string(raw)))

	_, err = store.GetSession(context.Background(), "hash-old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, mr.Exists(sessionPrefix+"hash-old"))
}

func TestRedisStore_RejectsExpiredSave(t *testing.T) {
	store, mr := newRedisStore(t)

	err := store.SaveSession(context.Background(), "hash-x", testSession("s-x", "u-1", -time.Second))
	assert.Error(t, err)
	assert.False(t, mr.Exists(sessionPrefix+"hash-x"))
}

func TestRedisStore_DeleteSession(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, "hash-1", testSession("s-1", "u-1", time.Hour)))
	require.NoError(t, store.DeleteSession(ctx, "hash-1"))

	_, err := store.GetSession(ctx, "hash-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_DeleteUserSessions(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, "hash-a", testSession("s-a", "u-1", time.Hour)))
	require.NoError(t, store.SaveSession(ctx, "hash-b", testSession("s-b", "u-1", time.Hour)))
	require.NoError(t, store.SaveSession(ctx, "hash-c", testSession("s-c", "u-2", time.Hour)))

	require.NoError(t, store.DeleteUserSessions(ctx, "u-1"))

	for _, h := range []string{"hash-a", "hash-b"} {
		_, err := store.GetSession(ctx, h)
		assert.ErrorIs(t, err, ErrSessionNotFound, h)
	}
	assert.False(t, mr.Exists(userSessionsPrefix+"u-1"))

	other, err := store.GetSession(ctx, "hash-c")
	require.NoError(t, err)
	assert.Equal(t, "u-2", other.UserID)

	assert.NoError(t, store.DeleteUserSessions(ctx, "nobody"))
}

func TestRedisStore_ConsumeTokenOnce(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	first, err := store.ConsumeToken(ctx, "jti-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.ConsumeToken(ctx, "jti-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, again)

	other, err := store.ConsumeToken(ctx, "jti-2", 0)
	require.NoError(t, err)
	assert.True(t, other)
	assert.Equal(t, time.Minute, mr.TTL(usedTokenPrefix+"jti-2"))
}

func TestRedisStore_UnavailableIsNotAbsence(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, "hash-1", testSession("s-1", "u-1", time.Hour)))
	mr.Close()

	_, err := store.GetSession(ctx, "hash-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)

	_, err = store.ConsumeToken(ctx, "jti-1", time.Hour)
	assert.Error(t, err)
}
