package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-marketspace-session/internal/errors"
	"github.com/pkg/errors"
)

var (
	// ErrUnauthorized is returned when the API rejects the attached bearer token.
	ErrUnauthorized = apperrors.ErrUnauthorized

	// ErrTokenExpired is returned when the attached bearer token is a JWT whose
	// exp claim has passed. The request is not sent.
	ErrTokenExpired = apperrors.ErrTokenExpired

	// ErrInvalidToken is returned by Introspect for tokens that are not JWTs.
	ErrInvalidToken = apperrors.ErrInvalidToken

	// ErrMalformedResponse is returned when a response body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError is returned for non-2xx responses. Message carries the API's
// "message" field when the body provides one.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets callers match 401 responses with errors.Is(err, ErrUnauthorized).
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

type apiErrorBody struct {
	Message string `json:"message"`
}

func newStatusError(code int, body []byte) *StatusError {
	var apiErr apiErrorBody
	_ = json.Unmarshal(body, &apiErr)
	return &StatusError{StatusCode: code, Message: apiErr.Message}
}
