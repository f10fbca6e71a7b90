package config

import (
	"net/url"
	"time"

	"github.com/pkg/errors"
)

const (
	apiURLVar      = "MARKETSPACE_API_URL"
	timeoutVar     = "MARKETSPACE_TIMEOUT"
	sessionPathVar = "MARKETSPACE_SESSION_PATH"

	defaultAPIURL  = "http://localhost:3333"
	defaultTimeout = 30 * time.Second
)

type TransportConfig interface {
	GetAPIURL() (string, error)
	GetTimeout() time.Duration
	GetSessionPath() string
}

type Transport struct{}

var _ TransportConfig = Transport{}

// GetAPIURL returns the marketplace API base URL. It must be absolute.
func (Transport) GetAPIURL() (string, error) {
	raw := GetEnv(apiURLVar, defaultAPIURL)
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrapf(err, "%s", apiURLVar)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", errors.Errorf("%s must be an absolute URL, got %q", apiURLVar, raw)
	}
	return raw, nil
}

// GetTimeout parses a Go duration ("10s"). Invalid or non-positive values fall back to 30s.
func (Transport) GetTimeout() time.Duration {
	d, err := time.ParseDuration(GetEnv(timeoutVar, ""))
	if err != nil || d <= 0 {
		return defaultTimeout
	}
	return d
}

func (Transport) GetSessionPath() string {
	return GetEnv(sessionPathVar, "/sessions")
}
