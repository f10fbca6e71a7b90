package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jrsteele09/go-marketspace-session/credentials"
	"github.com/jrsteele09/go-marketspace-session/credentials/filestore"
	"github.com/jrsteele09/go-marketspace-session/credentials/redisstore"
	fakecredentialstore "github.com/jrsteele09/go-marketspace-session/credentials/repofake"
	"github.com/jrsteele09/go-marketspace-session/credentials/sqlitestore"
	"github.com/jrsteele09/go-marketspace-session/internal/config"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// openStore builds the configured credential store and a func releasing it.
func openStore(ctx context.Context, c config.StoreConfig) (credentials.Store, func(), error) {
	backend := c.GetCredentialStore()
	log.Debug().Str("store", backend).Msg("opening credential store")

	switch backend {
	case config.StoreMemory:
		return fakecredentialstore.NewFakeCredentialStore(), func() {}, nil

	case config.StoreFile:
		key, err := c.GetCredentialKey()
		if err != nil {
			return nil, nil, err
		}
		s, err := filestore.New(c.GetCredentialFile(), key)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, errors.Wrap(redisstore.ErrRedisUnavailable, err.Error())
		}
		s, err := redisstore.New(rdb, c.GetRedisPrefix())
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return s, func() { _ = rdb.Close() }, nil

	case config.StoreSQLite:
		path := c.GetSQLitePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, nil, errors.Wrap(err, "create sqlite directory")
		}
		s, err := sqlitestore.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
	return nil, nil, errors.Errorf("unknown credential store %q", backend)
}
