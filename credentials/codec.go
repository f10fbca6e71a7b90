package credentials

import (
	"encoding/json"

	"github.com/jrsteele09/go-marketspace-session/users"
	"github.com/pkg/errors"
)

// EncodeUser serializes a user record for byte-oriented backends.
func EncodeUser(user *users.User) ([]byte, error) {
	if user == nil {
		return nil, errors.New("[EncodeUser] user is required")
	}
	return json.Marshal(user)
}

// DecodeUser parses a user record. Malformed bytes yield ErrCorrupt.
func DecodeUser(data []byte) (*users.User, error) {
	var u users.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, errors.Wrap(ErrCorrupt, err.Error())
	}
	return &u, nil
}

// EncodeTokenPair serializes a token pair record.
func EncodeTokenPair(pair TokenPair) ([]byte, error) {
	return json.Marshal(pair)
}

// DecodeTokenPair parses a token pair record. Malformed bytes yield ErrCorrupt.
func DecodeTokenPair(data []byte) (*TokenPair, error) {
	var tp TokenPair
	if err := json.Unmarshal(data, &tp); err != nil {
		return nil, errors.Wrap(ErrCorrupt, err.Error())
	}
	return &tp, nil
}
