package session

import (
	"time"

	"github.com/jrsteele09/go-marketspace-session/users"
)

// State is the session lifecycle state.
type State int

const (
	// StateUnknown is the initial state, before Restore completes.
	StateUnknown State = iota
	// StateAbsent means no session.
	StateAbsent
	// StatePresent means a user and access token are held and the
	// Authorization header is set.
	StatePresent
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateAbsent:
		return "absent"
	case StatePresent:
		return "present"
	}
	return "invalid"
}

// Snapshot is an immutable view of the session published to observers.
type Snapshot struct {
	State       State
	User        *users.User // never nil; empty unless State is StatePresent
	AccessToken string
	Loading     bool

	// SessionID correlates log lines for one Present period. Empty otherwise.
	SessionID string

	// AccessExpiry is the access token's exp when it is a JWT carrying one.
	AccessExpiry *time.Time
}

// Present reports whether the snapshot holds an active session.
func (s Snapshot) Present() bool {
	return s.State == StatePresent
}
