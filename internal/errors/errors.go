package errors

import "errors"

// Common error types shared by the session packages
var (
	// Credential errors
	ErrMissingCredentials = errors.New("missing credentials")

	// Token errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrUnauthorized = errors.New("unauthorized")

	// Session errors
	ErrNoSession          = errors.New("no active session")
	ErrIncompleteResponse = errors.New("incomplete session response")

	// Storage errors
	ErrNotFound = errors.New("not found")
	ErrCorrupt  = errors.New("corrupt record")

	// General errors
	ErrClosed = errors.New("closed")
)
