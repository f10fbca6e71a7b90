// Package redisstore keeps the credential records in Redis. Combined session
// writes and clears go through MULTI/EXEC so both keys change together.
package redisstore

import (
	"context"
	"strings"
	"time"

	"github.com/jrsteele09/go-marketspace-session/credentials"
	"github.com/jrsteele09/go-marketspace-session/users"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var (
	_ credentials.Store          = (*Store)(nil)
	_ credentials.SessionWriter  = (*Store)(nil)
	_ credentials.SessionClearer = (*Store)(nil)
)

// ErrRedisUnavailable wraps client errors other than a missing key.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Store is a credentials.Store backed by a redis client.
type Store struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires both records after ttl. Zero keeps them indefinitely.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// New returns a store using keys namespaced by prefix.
func New(rdb redis.UniversalClient, prefix string, options ...Option) (*Store, error) {
	if rdb == nil {
		return nil, errors.New("[redisstore.New] redis client is required")
	}
	s := &Store{
		rdb:    rdb,
		prefix: strings.TrimSuffix(prefix, ":"),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + ":" + name
}

func (s *Store) read(ctx context.Context, name string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, credentials.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(ErrRedisUnavailable, err.Error())
	}
	return data, nil
}

func (s *Store) write(ctx context.Context, name string, data []byte) error {
	if err := s.rdb.Set(ctx, s.key(name), data, s.ttl).Err(); err != nil {
		return errors.Wrap(ErrRedisUnavailable, err.Error())
	}
	return nil
}

func (s *Store) remove(ctx context.Context, names ...string) error {
	keys := make([]string, 0, len(names))
	for _, n := range names {
		keys = append(keys, s.key(n))
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(ErrRedisUnavailable, err.Error())
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context) (*users.User, error) {
	data, err := s.read(ctx, credentials.UserKey)
	if err != nil {
		return nil, err
	}
	return credentials.DecodeUser(data)
}

func (s *Store) SaveUser(ctx context.Context, user *users.User) error {
	data, err := credentials.EncodeUser(user)
	if err != nil {
		return err
	}
	return s.write(ctx, credentials.UserKey, data)
}

func (s *Store) RemoveUser(ctx context.Context) error {
	return s.remove(ctx, credentials.UserKey)
}

func (s *Store) GetTokenPair(ctx context.Context) (*credentials.TokenPair, error) {
	data, err := s.read(ctx, credentials.TokenPairKey)
	if err != nil {
		return nil, err
	}
	return credentials.DecodeTokenPair(data)
}

func (s *Store) SaveTokenPair(ctx context.Context, pair credentials.TokenPair) error {
	data, err := credentials.EncodeTokenPair(pair)
	if err != nil {
		return err
	}
	return s.write(ctx, credentials.TokenPairKey, data)
}

func (s *Store) RemoveTokenPair(ctx context.Context) error {
	return s.remove(ctx, credentials.TokenPairKey)
}

// SaveSession sets both keys inside one transaction.
func (s *Store) SaveSession(ctx context.Context, user *users.User, pair credentials.TokenPair) error {
	userData, err := credentials.EncodeUser(user)
	if err != nil {
		return err
	}
	pairData, err := credentials.EncodeTokenPair(pair)
	if err != nil {
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(credentials.UserKey), userData, s.ttl)
		pipe.Set(ctx, s.key(credentials.TokenPairKey), pairData, s.ttl)
		return nil
	})
	if err != nil {
		return errors.Wrap(ErrRedisUnavailable, err.Error())
	}
	return nil
}

// ClearSession deletes both keys in one command.
func (s *Store) ClearSession(ctx context.Context) error {
	return s.remove(ctx, credentials.UserKey, credentials.TokenPairKey)
}
