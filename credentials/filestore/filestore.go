// Package filestore persists the credential records in a single file sealed
// with NaCl secretbox. Every write replaces the file atomically, so the user
// record and the token pair written by SaveSession are never observed apart.
package filestore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-marketspace-session/credentials"
	"github.com/jrsteele09/go-marketspace-session/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
	fileMode  = 0o600
)

var (
	_ credentials.Store          = (*Store)(nil)
	_ credentials.SessionWriter  = (*Store)(nil)
	_ credentials.SessionClearer = (*Store)(nil)
)

// ErrInvalidKey is returned when the sealing key is not 32 bytes.
var ErrInvalidKey = errors.New("filestore: key must be 32 bytes")

// Store is a credentials.Store backed by an encrypted file.
type Store struct {
	path   string
	key    [keySize]byte
	mu     sync.Mutex
	logger zerolog.Logger
}

// KeyFromHex decodes a hex encoded 32 byte key.
func KeyFromHex(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKey, err.Error())
	}
	if len(key) != keySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// New returns a store writing to path. The parent directory is created if needed.
func New(path string, key []byte) (*Store, error) {
	if path == "" {
		return nil, errors.New("[filestore.New] path is required")
	}
	if len(key) != keySize {
		return nil, ErrInvalidKey
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "[filestore.New] create directory")
	}

	s := &Store{
		path:   path,
		logger: log.With().Str("component", "filestore").Logger(),
	}
	copy(s.key[:], key)
	return s, nil
}

type records map[string]json.RawMessage

func (s *Store) load() (records, error) {
	sealed, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return records{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Store.load] read")
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, errors.Wrap(credentials.ErrCorrupt, "[Store.load] short file")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, errors.Wrap(credentials.ErrCorrupt, "[Store.load] authentication failed")
	}

	recs := records{}
	if err := json.Unmarshal(plain, &recs); err != nil {
		return nil, errors.Wrap(credentials.ErrCorrupt, err.Error())
	}
	return recs, nil
}

func (s *Store) save(recs records) error {
	if len(recs) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrap(err, "[Store.save] remove")
		}
		return nil
	}

	plain, err := json.Marshal(recs)
	if err != nil {
		return errors.Wrap(err, "[Store.save] marshal")
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return errors.Wrap(err, "[Store.save] nonce")
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, &s.key)

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "[Store.save] create temp")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(sealed); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "[Store.save] write")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "[Store.save] sync")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[Store.save] close")
	}
	if err := os.Chmod(tmpName, fileMode); err != nil {
		return errors.Wrap(err, "[Store.save] chmod")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.Wrap(err, "[Store.save] rename")
	}
	return nil
}

// update runs fn over the decoded records and writes the result. A corrupt
// file is replaced rather than blocking every later write.
func (s *Store) update(ctx context.Context, fn func(records) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load()
	if errors.Is(err, credentials.ErrCorrupt) {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("discarding unreadable credential file")
		recs, err = records{}, nil
	}
	if err != nil {
		return err
	}
	if err := fn(recs); err != nil {
		return err
	}
	return s.save(recs)
}

func (s *Store) get(ctx context.Context, key string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load()
	if err != nil {
		return nil, err
	}
	raw, ok := recs[key]
	if !ok {
		return nil, credentials.ErrNotFound
	}
	return raw, nil
}

func (s *Store) GetUser(ctx context.Context) (*users.User, error) {
	raw, err := s.get(ctx, credentials.UserKey)
	if err != nil {
		return nil, err
	}
	return credentials.DecodeUser(raw)
}

func (s *Store) SaveUser(ctx context.Context, user *users.User) error {
	data, err := credentials.EncodeUser(user)
	if err != nil {
		return err
	}
	return s.update(ctx, func(recs records) error {
		recs[credentials.UserKey] = data
		return nil
	})
}

func (s *Store) RemoveUser(ctx context.Context) error {
	return s.update(ctx, func(recs records) error {
		delete(recs, credentials.UserKey)
		return nil
	})
}

func (s *Store) GetTokenPair(ctx context.Context) (*credentials.TokenPair, error) {
	raw, err := s.get(ctx, credentials.TokenPairKey)
	if err != nil {
		return nil, err
	}
	return credentials.DecodeTokenPair(raw)
}

func (s *Store) SaveTokenPair(ctx context.Context, pair credentials.TokenPair) error {
	data, err := credentials.EncodeTokenPair(pair)
	if err != nil {
		return err
	}
	return s.update(ctx, func(recs records) error {
		recs[credentials.TokenPairKey] = data
		return nil
	})
}

func (s *Store) RemoveTokenPair(ctx context.Context) error {
	return s.update(ctx, func(recs records) error {
		delete(recs, credentials.TokenPairKey)
		return nil
	})
}

// SaveSession writes both records in one file replacement.
func (s *Store) SaveSession(ctx context.Context, user *users.User, pair credentials.TokenPair) error {
	userData, err := credentials.EncodeUser(user)
	if err != nil {
		return err
	}
	pairData, err := credentials.EncodeTokenPair(pair)
	if err != nil {
		return err
	}
	return s.update(ctx, func(recs records) error {
		recs[credentials.UserKey] = userData
		recs[credentials.TokenPairKey] = pairData
		return nil
	})
}

// ClearSession removes both records in one file replacement.
func (s *Store) ClearSession(ctx context.Context) error {
	return s.update(ctx, func(recs records) error {
		delete(recs, credentials.UserKey)
		delete(recs, credentials.TokenPairKey)
		return nil
	})
}
