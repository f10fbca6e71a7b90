package session

import (
	"errors"

	apperrors "github.com/jrsteele09/go-marketspace-session/internal/errors"
)

var (
	// ErrMissingCredentials is returned when the identifier or secret is empty.
	ErrMissingCredentials = apperrors.ErrMissingCredentials

	// ErrIncompleteResponse is returned when the sign-in response lacks the user,
	// the access token or the refresh token.
	ErrIncompleteResponse = apperrors.ErrIncompleteResponse

	// ErrPersist is returned when the credential store rejects the new session.
	ErrPersist = errors.New("persist session")

	// ErrNotRestored is returned by SignIn before Restore has completed.
	ErrNotRestored = errors.New("session not restored")

	// ErrClosed is returned by mutations after Close.
	ErrClosed = apperrors.ErrClosed

	// ErrNoSession is returned by Token when no session is present.
	ErrNoSession = apperrors.ErrNoSession
)
