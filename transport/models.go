package transport

import (
	"github.com/jrsteele09/go-marketspace-session/internal/utils"
	"github.com/jrsteele09/go-marketspace-session/users"
)

// SessionRequest is the body posted to the session-creation endpoint.
type SessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is the session-creation response. Every field is optional on
// the wire; Complete reports whether the response can establish a session.
type SessionResponse struct {
	// User is the signed-in principal.
	User *users.User `json:"user,omitempty"`

	// Token is the bearer access token.
	// Usage: Include in Authorization header: "Bearer <token>"
	Token *string `json:"token,omitempty"`

	// RefreshToken is an opaque token the API exchanges for a new access token.
	RefreshToken *string `json:"refresh_token,omitempty"`
}

// Complete reports whether user, token and refresh token are all present.
func (r *SessionResponse) Complete() bool {
	return r != nil &&
		!r.User.IsEmpty() &&
		utils.Value(r.Token) != "" &&
		utils.Value(r.RefreshToken) != ""
}

// AccessToken returns the access token or "".
func (r *SessionResponse) AccessToken() string {
	if r == nil {
		return ""
	}
	return utils.Value(r.Token)
}

// Refresh returns the refresh token or "".
func (r *SessionResponse) Refresh() string {
	if r == nil {
		return ""
	}
	return utils.Value(r.RefreshToken)
}
