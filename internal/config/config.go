package config

import (
	"github.com/pkg/errors"
)

type Config interface {
	EnvConfig
	TransportConfig
	StoreConfig
	Validate() error
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	Transport
	Store
}

func New() Config {
	return mainConfig{}
}

// Validate reports settings that cannot be defaulted.
func (c mainConfig) Validate() error {
	if _, err := c.GetAPIURL(); err != nil {
		return err
	}
	if c.GetCredentialStore() == StoreFile {
		if _, err := c.GetCredentialKey(); err != nil {
			return errors.Wrapf(err, "%s is required for the %s store", credentialKeyVar, StoreFile)
		}
	}
	return nil
}
