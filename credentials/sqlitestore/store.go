// Package sqlitestore provides a SQLite-backed credential store.
package sqlitestore

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"time"

	"github.com/jrsteele09/go-marketspace-session/credentials"
	"github.com/jrsteele09/go-marketspace-session/users"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

var (
	_ credentials.Store          = (*Store)(nil)
	_ credentials.SessionWriter  = (*Store)(nil)
	_ credentials.SessionClearer = (*Store)(nil)
)

const schema = `CREATE TABLE IF NOT EXISTS credential_records (
  record_key TEXT PRIMARY KEY,
  payload    BLOB NOT NULL,
  updated_at INTEGER NOT NULL
)`

// Store persists credential records in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens a SQLite credential store and creates its table.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("[sqlitestore.Open] storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.Open] open sqlite db")
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "[sqlitestore.Open] ping sqlite db")
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "[sqlitestore.Open] create schema")
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) put(ctx context.Context, db execer, key string, payload []byte) error {
	_, err := db.ExecContext(
		ctx,
		`INSERT INTO credential_records (record_key, payload, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(record_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key,
		payload,
		s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return errors.Wrapf(err, "[Store.put] %s", key)
	}
	return nil
}

func (s *Store) del(ctx context.Context, db execer, keys ...string) error {
	for _, key := range keys {
		if _, err := db.ExecContext(ctx, `DELETE FROM credential_records WHERE record_key = ?`, key); err != nil {
			return errors.Wrapf(err, "[Store.del] %s", key)
		}
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.sqlDB.QueryRowContext(ctx, `SELECT payload FROM credential_records WHERE record_key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, credentials.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "[Store.get] %s", key)
	}
	return payload, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "[Store.inTx] begin")
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "[Store.inTx] commit")
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context) (*users.User, error) {
	payload, err := s.get(ctx, credentials.UserKey)
	if err != nil {
		return nil, err
	}
	return credentials.DecodeUser(payload)
}

func (s *Store) SaveUser(ctx context.Context, user *users.User) error {
	payload, err := credentials.EncodeUser(user)
	if err != nil {
		return err
	}
	return s.put(ctx, s.sqlDB, credentials.UserKey, payload)
}

func (s *Store) RemoveUser(ctx context.Context) error {
	return s.del(ctx, s.sqlDB, credentials.UserKey)
}

func (s *Store) GetTokenPair(ctx context.Context) (*credentials.TokenPair, error) {
	payload, err := s.get(ctx, credentials.TokenPairKey)
	if err != nil {
		return nil, err
	}
	return credentials.DecodeTokenPair(payload)
}

func (s *Store) SaveTokenPair(ctx context.Context, pair credentials.TokenPair) error {
	payload, err := credentials.EncodeTokenPair(pair)
	if err != nil {
		return err
	}
	return s.put(ctx, s.sqlDB, credentials.TokenPairKey, payload)
}

func (s *Store) RemoveTokenPair(ctx context.Context) error {
	return s.del(ctx, s.sqlDB, credentials.TokenPairKey)
}

// SaveSession writes both records in one transaction.
func (s *Store) SaveSession(ctx context.Context, user *users.User, pair credentials.TokenPair) error {
	userPayload, err := credentials.EncodeUser(user)
	if err != nil {
		return err
	}
	pairPayload, err := credentials.EncodeTokenPair(pair)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.put(ctx, tx, credentials.UserKey, userPayload); err != nil {
			return err
		}
		return s.put(ctx, tx, credentials.TokenPairKey, pairPayload)
	})
}

// ClearSession removes both records in one transaction.
func (s *Store) ClearSession(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.del(ctx, tx, credentials.UserKey, credentials.TokenPairKey)
	})
}
