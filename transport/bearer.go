package transport

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const bearerPrefix = "Bearer "

// BearerValue formats an access token for the Authorization header.
func BearerValue(accessToken string) string {
	return bearerPrefix + accessToken
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

// TokenIntrospection is what the client can learn from a bearer token without
// the issuer's key. Opaque tokens yield an error from Introspect.
type TokenIntrospection struct {
	Sub *string    // Subject
	Exp *time.Time // Expiration
	Iat *time.Time // Issued at
}

// Expired reports whether the token carries an exp at or before now.
func (ti *TokenIntrospection) Expired(now time.Time) bool {
	if ti == nil || ti.Exp == nil {
		return false
	}
	return !now.Before(*ti.Exp)
}

// Introspect parses rawToken as a JWT without verifying its signature.
// The signature is the API's concern; the client only reads timing claims.
func Introspect(rawToken string) (*TokenIntrospection, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errors.Wrap(ErrInvalidToken, "empty token")
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.Wrap(ErrInvalidToken, "[Introspect] error extracting claims")
	}

	ti := &TokenIntrospection{}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		ti.Sub = &sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		ti.Exp = &t
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		t := iat.Time
		ti.Iat = &t
	}
	return ti, nil
}
