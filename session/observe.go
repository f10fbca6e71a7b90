package session

import (
	"github.com/google/uuid"
	"github.com/jrsteele09/go-marketspace-session/users"
	"golang.org/x/oauth2"
)

var _ oauth2.TokenSource = (*Manager)(nil)

// CurrentUser returns a copy of the session user, or an empty user when no
// session is present.
func (m *Manager) CurrentUser() *users.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return &users.User{}
	}
	return m.user.Clone()
}

// CurrentAccessToken returns the access token, or "" when no session is present.
func (m *Manager) CurrentAccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken
}

// Loading reports whether a Restore, SignIn or SignOut is in flight.
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pending > 0
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Snapshot returns a consistent view of the session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	user := m.user.Clone()
	if user == nil {
		user = &users.User{}
	}
	var exp = m.accessExp
	if exp != nil {
		t := *exp
		exp = &t
	}
	return Snapshot{
		State:        m.state,
		User:         user,
		AccessToken:  m.accessToken,
		Loading:      m.pending > 0,
		SessionID:    m.sessionID,
		AccessExpiry: exp,
	}
}

// Token implements oauth2.TokenSource so that oauth2.NewClient can attach the
// session's bearer to requests made outside the transport client.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StatePresent {
		return nil, ErrNoSession
	}
	tok := &oauth2.Token{AccessToken: m.accessToken, TokenType: "Bearer"}
	if m.accessExp != nil {
		tok.Expiry = *m.accessExp
	}
	return tok, nil
}

// Subscribe calls fn with the current snapshot and then after every state or
// loading change, in order. The returned function stops delivery.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	id := uuid.New()

	m.notifyLock.Lock()
	defer m.notifyLock.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return func() {}
	}
	m.observers = append(m.observers, observer{id: id, fn: fn})
	snap := m.snapshotLocked()
	m.mu.Unlock()

	fn(snap)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, o := range m.observers {
			if o.id == id {
				m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) publish() {
	m.notifyLock.Lock()
	defer m.notifyLock.Unlock()

	m.mu.RLock()
	observers := make([]observer, len(m.observers))
	copy(observers, m.observers)
	snap := m.snapshotLocked()
	m.mu.RUnlock()

	for _, o := range observers {
		o.fn(snap)
	}
}
