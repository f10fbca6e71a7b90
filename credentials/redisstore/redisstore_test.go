package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-marketspace-session/credentials"
	"github.com/jrsteele09/go-marketspace-session/credentials/redisstore"
	"github.com/jrsteele09/go-marketspace-session/users"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisStoreTest(t *testing.T, options ...redisstore.Option) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	s, err := redisstore.New(rdb, "ms:", options...)
	require.NoError(t, err)
	return s, mr
}

func TestNew_RequiresClient(t *testing.T) {
	_, err := redisstore.New(nil, "ms")
	require.Error(t, err)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStoreTest(t)

	_, err := s.GetUser(ctx)
	require.ErrorIs(t, err, credentials.ErrNotFound)

	require.NoError(t, s.SaveUser(ctx, &users.User{ID: "u1", Email: "ana@x.com"}))
	require.NoError(t, s.SaveTokenPair(ctx, credentials.TokenPair{AccessToken: "tok-1", RefreshToken: "rt-1"}))
	require.True(t, mr.Exists("ms:"+credentials.UserKey))
	require.True(t, mr.Exists("ms:"+credentials.TokenPairKey))

	u, err := s.GetUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "ana@x.com", u.Email)

	tp, err := s.GetTokenPair(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-1", tp.AccessToken)

	require.NoError(t, s.RemoveTokenPair(ctx))
	require.NoError(t, s.RemoveTokenPair(ctx))
	_, err = s.GetTokenPair(ctx)
	require.ErrorIs(t, err, credentials.ErrNotFound)
}

func TestStore_SessionWritesAndTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStoreTest(t, redisstore.WithTTL(time.Hour))

	require.NoError(t, s.SaveSession(ctx, &users.User{ID: "u1"}, credentials.TokenPair{AccessToken: "tok", RefreshToken: "rt"}))
	require.Equal(t, time.Hour, mr.TTL("ms:"+credentials.UserKey))
	require.Equal(t, time.Hour, mr.TTL("ms:"+credentials.TokenPairKey))

	mr.FastForward(2 * time.Hour)
	_, err := s.GetUser(ctx)
	require.ErrorIs(t, err, credentials.ErrNotFound)

	require.NoError(t, s.SaveSession(ctx, &users.User{ID: "u1"}, credentials.TokenPair{AccessToken: "tok"}))
	require.NoError(t, s.ClearSession(ctx))
	require.False(t, mr.Exists("ms:"+credentials.UserKey))
	require.False(t, mr.Exists("ms:"+credentials.TokenPairKey))
}

func TestStore_CorruptRecord(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStoreTest(t)
	require.NoError(t, mr.Set("ms:"+credentials.UserKey, "not json"))

	_, err := s.GetUser(ctx)
	require.ErrorIs(t, err, credentials.ErrCorrupt)
}

func TestStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStoreTest(t)
	mr.Close()

	_, err := s.GetUser(ctx)
	require.ErrorIs(t, err, redisstore.ErrRedisUnavailable)
	require.ErrorIs(t, s.SaveTokenPair(ctx, credentials.TokenPair{AccessToken: "tok"}), redisstore.ErrRedisUnavailable)
}
