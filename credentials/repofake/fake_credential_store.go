package fakecredentialstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-marketspace-session/credentials"
	"github.com/jrsteele09/go-marketspace-session/users"
)

var _ credentials.Store = (*FakeCredentialStore)(nil)

// Op names a store operation for failure injection and hooks.
type Op string

const (
	OpGetUser         Op = "GetUser"
	OpSaveUser        Op = "SaveUser"
	OpRemoveUser      Op = "RemoveUser"
	OpGetTokenPair    Op = "GetTokenPair"
	OpSaveTokenPair   Op = "SaveTokenPair"
	OpRemoveTokenPair Op = "RemoveTokenPair"
)

// FakeCredentialStore keeps both records in memory. It backs the "memory"
// store setting and lets tests inject failures per operation.
type FakeCredentialStore struct {
	user  *users.User
	pair  *credentials.TokenPair
	fails map[Op]error
	hook  func(Op)
	calls []Op
	lock  sync.RWMutex
}

// NewFakeCredentialStore returns an empty store with no failures injected.
func NewFakeCredentialStore() *FakeCredentialStore {
	return &FakeCredentialStore{
		fails: make(map[Op]error),
	}
}

// FailOn makes every subsequent call of op return err. A nil err clears it.
func (s *FakeCredentialStore) FailOn(op Op, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err == nil {
		delete(s.fails, op)
		return
	}
	s.fails[op] = err
}

// OnCall installs a hook run at the start of each operation, outside the lock.
func (s *FakeCredentialStore) OnCall(hook func(Op)) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.hook = hook
}

// Calls returns the operations invoked so far, in order.
func (s *FakeCredentialStore) Calls() []Op {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return append([]Op(nil), s.calls...)
}

// Seed writes records directly, bypassing hooks and failures.
func (s *FakeCredentialStore) Seed(user *users.User, pair *credentials.TokenPair) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.user = user.Clone()
	if pair != nil {
		p := *pair
		s.pair = &p
	} else {
		s.pair = nil
	}
}

func (s *FakeCredentialStore) enter(op Op) error {
	s.lock.Lock()
	s.calls = append(s.calls, op)
	hook := s.hook
	err := s.fails[op]
	s.lock.Unlock()

	if hook != nil {
		hook(op)
	}
	return err
}

// GetUser returns a copy of the stored user or credentials.ErrNotFound.
func (s *FakeCredentialStore) GetUser(ctx context.Context) (*users.User, error) {
	if err := s.enter(OpGetUser); err != nil {
		return nil, err
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.user == nil {
		return nil, credentials.ErrNotFound
	}
	return s.user.Clone(), nil
}

// SaveUser stores a copy of user.
func (s *FakeCredentialStore) SaveUser(ctx context.Context, user *users.User) error {
	if err := s.enter(OpSaveUser); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.user = user.Clone()
	return nil
}

// RemoveUser drops the user record.
func (s *FakeCredentialStore) RemoveUser(ctx context.Context) error {
	if err := s.enter(OpRemoveUser); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.user = nil
	return nil
}

// GetTokenPair returns a copy of the stored pair or credentials.ErrNotFound.
func (s *FakeCredentialStore) GetTokenPair(ctx context.Context) (*credentials.TokenPair, error) {
	if err := s.enter(OpGetTokenPair); err != nil {
		return nil, err
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.pair == nil {
		return nil, credentials.ErrNotFound
	}
	p := *s.pair
	return &p, nil
}

// SaveTokenPair stores pair.
func (s *FakeCredentialStore) SaveTokenPair(ctx context.Context, pair credentials.TokenPair) error {
	if err := s.enter(OpSaveTokenPair); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.pair = &pair
	return nil
}

// RemoveTokenPair drops the token pair record.
func (s *FakeCredentialStore) RemoveTokenPair(ctx context.Context) error {
	if err := s.enter(OpRemoveTokenPair); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.pair = nil
	return nil
}

// Snapshot returns copies of the stored records without recording a call.
func (s *FakeCredentialStore) Snapshot() (*users.User, *credentials.TokenPair) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	var pair *credentials.TokenPair
	if s.pair != nil {
		p := *s.pair
		pair = &p
	}
	return s.user.Clone(), pair
}
