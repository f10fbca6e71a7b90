package users

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// User is the authenticated principal as returned by the marketplace API.
// JSON keys other than the named fields are kept in Extra and written back
// at the top level, so a round trip through the credential store keeps them.
type User struct {
	ID     string         `json:"id,omitempty"`     // Unique identifier for the user
	Name   string         `json:"name,omitempty"`   // Display name
	Email  string         `json:"email,omitempty"`  // User's email address
	Avatar string         `json:"avatar,omitempty"` // Avatar image reference, relative to the API images path
	Tel    string         `json:"tel,omitempty"`    // Contact phone number
	Extra  map[string]any `json:"-"`                // Other profile fields, opaque to the session manager
}

// userFields has User's named fields without its JSON methods.
type userFields struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Tel    string `json:"tel,omitempty"`
}

var namedKeys = map[string]struct{}{"id": {}, "name": {}, "email": {}, "avatar": {}, "tel": {}}

// MarshalJSON writes Extra's keys next to the named fields. Named fields win
// on a key clash.
func (u User) MarshalJSON() ([]byte, error) {
	named, err := json.Marshal(userFields{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar, Tel: u.Tel})
	if err != nil {
		return nil, errors.Wrap(err, "[User.MarshalJSON] named fields")
	}
	if len(u.Extra) == 0 {
		return named, nil
	}

	out := make(map[string]json.RawMessage, len(u.Extra)+len(namedKeys))
	for k, v := range u.Extra {
		if _, ok := namedKeys[k]; ok {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrapf(err, "[User.MarshalJSON] extra field %q", k)
		}
		out[k] = raw
	}
	if err := json.Unmarshal(named, &out); err != nil {
		return nil, errors.Wrap(err, "[User.MarshalJSON] merge")
	}
	return json.Marshal(out)
}

// UnmarshalJSON fills the named fields and collects every other key in Extra.
func (u *User) UnmarshalJSON(data []byte) error {
	var named userFields
	if err := json.Unmarshal(data, &named); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	*u = User{ID: named.ID, Name: named.Name, Email: named.Email, Avatar: named.Avatar, Tel: named.Tel}
	for k, v := range all {
		if _, ok := namedKeys[k]; ok {
			continue
		}
		if u.Extra == nil {
			u.Extra = make(map[string]any)
		}
		u.Extra[k] = v
	}
	return nil
}

// IsEmpty reports whether u carries no identity. A nil user is empty.
func (u *User) IsEmpty() bool {
	if u == nil {
		return true
	}
	return u.ID == "" && u.Email == "" && u.Name == ""
}

// Clone returns a deep copy so that observers cannot mutate session state.
// Nested maps and slices in Extra are copied too.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Extra != nil {
		c.Extra = cloneMap(u.Extra)
	}
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
