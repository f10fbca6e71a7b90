package config

import (
	"strconv"
	"strings"

	"github.com/jrsteele09/go-marketspace-session/credentials/filestore"
	"github.com/pkg/errors"
)

const (
	credentialStoreVar = "CREDENTIAL_STORE"
	credentialFileVar  = "CREDENTIAL_FILE"
	credentialKeyVar   = "CREDENTIAL_KEY"
	redisAddrVar       = "REDIS_ADDR"
	redisPasswordVar   = "REDIS_PASSWORD"
	redisDBVar         = "REDIS_DB"
	redisPrefixVar     = "REDIS_PREFIX"
	sqlitePathVar      = "SQLITE_PATH"
)

// Credential store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

type StoreConfig interface {
	GetCredentialStore() string
	GetCredentialFile() string
	GetCredentialKey() ([]byte, error)
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
	GetSQLitePath() string
}

type Store struct{}

var _ StoreConfig = Store{}

// GetCredentialStore returns the backend name. Unknown values fall back to file.
func (Store) GetCredentialStore() string {
	switch v := strings.ToLower(GetEnv(credentialStoreVar, StoreFile)); v {
	case StoreMemory, StoreFile, StoreRedis, StoreSQLite:
		return v
	default:
		return StoreFile
	}
}

func (Store) GetCredentialFile() string {
	return GetEnv(credentialFileVar, "./data/session.bin")
}

// GetCredentialKey decodes the hex sealing key for the file store.
func (Store) GetCredentialKey() ([]byte, error) {
	raw := GetEnv(credentialKeyVar, "")
	if raw == "" {
		return nil, errors.Errorf("%s is not set", credentialKeyVar)
	}
	return filestore.KeyFromHex(raw)
}

func (Store) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "localhost:6379")
}

func (Store) GetRedisPassword() string {
	return GetEnv(redisPasswordVar, "")
}

func (Store) GetRedisDB() int {
	db, err := strconv.Atoi(GetEnv(redisDBVar, "0"))
	if err != nil || db < 0 {
		return 0
	}
	return db
}

func (Store) GetRedisPrefix() string {
	return GetEnv(redisPrefixVar, "marketspace")
}

func (Store) GetSQLitePath() string {
	return GetEnv(sqlitePathVar, "./data/session.db")
}
