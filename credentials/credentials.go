package credentials

import (
	"context"

	apperrors "github.com/jrsteele09/go-marketspace-session/internal/errors"
	"github.com/jrsteele09/go-marketspace-session/users"
	"golang.org/x/oauth2"
)

// Stable record keys used by every backend.
const (
	UserKey      = "marketspace:user"
	TokenPairKey = "marketspace:token"
)

var (
	// ErrNotFound is returned by Get operations when the record is absent.
	ErrNotFound = apperrors.ErrNotFound

	// ErrCorrupt is returned when a stored record cannot be decoded.
	ErrCorrupt = apperrors.ErrCorrupt
)

// TokenPair is the persisted access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// IsEmpty reports whether the pair carries no access token.
func (tp *TokenPair) IsEmpty() bool {
	return tp == nil || tp.AccessToken == ""
}

// OAuth2Token converts the pair for use with golang.org/x/oauth2 clients.
func (tp *TokenPair) OAuth2Token() *oauth2.Token {
	if tp.IsEmpty() {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  tp.AccessToken,
		RefreshToken: tp.RefreshToken,
		TokenType:    "Bearer",
	}
}

// Store is durable storage for the serialized user and the token pair.
// The two records are independent; Get returns ErrNotFound for a missing record
// and Remove of a missing record is not an error.
type Store interface {
	GetUser(ctx context.Context) (*users.User, error)
	SaveUser(ctx context.Context, user *users.User) error
	RemoveUser(ctx context.Context) error

	GetTokenPair(ctx context.Context) (*TokenPair, error)
	SaveTokenPair(ctx context.Context, pair TokenPair) error
	RemoveTokenPair(ctx context.Context) error
}

// SessionWriter is implemented by stores that can persist both records in a
// single atomic write.
type SessionWriter interface {
	SaveSession(ctx context.Context, user *users.User, pair TokenPair) error
}

// SessionClearer is implemented by stores that can remove both records in a
// single atomic write.
type SessionClearer interface {
	ClearSession(ctx context.Context) error
}
