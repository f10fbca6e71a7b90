package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jrsteele09/go-marketspace-session/credentials"
	fakecredentialstore "github.com/jrsteele09/go-marketspace-session/credentials/repofake"
	"github.com/jrsteele09/go-marketspace-session/internal/utils"
	"github.com/jrsteele09/go-marketspace-session/session"
	"github.com/jrsteele09/go-marketspace-session/transport"
	"github.com/jrsteele09/go-marketspace-session/users"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "ana@x.com"
	testPassword = "secret"
)

type createFunc func(ctx context.Context, identifier, secret string) (*transport.SessionResponse, error)

// fakeTransport records header writes and lets tests fire the invalidation signal
type fakeTransport struct {
	mu       sync.Mutex
	headers  map[string]string
	handlers map[int]func()
	nextID   int
	create   createFunc
	calls    int
}

var _ session.Transport = (*fakeTransport)(nil)

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		headers:  make(map[string]string),
		handlers: make(map[int]func()),
		create:   respondWith(anaResponse()),
	}
}

func (ft *fakeTransport) CreateSession(ctx context.Context, identifier, secret string) (*transport.SessionResponse, error) {
	ft.mu.Lock()
	ft.calls++
	create := ft.create
	ft.mu.Unlock()
	return create(ctx, identifier, secret)
}

func (ft *fakeTransport) SetDefaultHeader(key, value string) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.headers[key] = value
}

func (ft *fakeTransport) DeleteDefaultHeader(key string) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	delete(ft.headers, key)
}

func (ft *fakeTransport) RegisterInvalidationHandler(handler func()) func() {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	id := ft.nextID
	ft.nextID++
	ft.handlers[id] = handler
	return func() {
		ft.mu.Lock()
		defer ft.mu.Unlock()
		delete(ft.handlers, id)
	}
}

func (ft *fakeTransport) setCreate(fn createFunc) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.create = fn
}

func (ft *fakeTransport) authorization() (string, bool) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	v, ok := ft.headers[transport.HeaderAuthorization]
	return v, ok
}

func (ft *fakeTransport) handlerCount() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return len(ft.handlers)
}

// invalidate plays the role of the response interceptor
func (ft *fakeTransport) invalidate() {
	ft.mu.Lock()
	handlers := make([]func(), 0, len(ft.handlers))
	for _, h := range ft.handlers {
		handlers = append(handlers, h)
	}
	ft.mu.Unlock()
	for _, h := range handlers {
		h()
	}
}

func respondWith(resp *transport.SessionResponse) createFunc {
	return func(context.Context, string, string) (*transport.SessionResponse, error) {
		return resp, nil
	}
}

func failWith(err error) createFunc {
	return func(context.Context, string, string) (*transport.SessionResponse, error) {
		return nil, err
	}
}

func anaResponse() *transport.SessionResponse {
	return &transport.SessionResponse{
		User:         &users.User{ID: "u1", Name: "Ana"},
		Token:        utils.Ptr("tok-1"),
		RefreshToken: utils.Ptr("rt-1"),
	}
}

// testFixture holds all test dependencies
type testFixture struct {
	store     *fakecredentialstore.FakeCredentialStore
	transport *fakeTransport
	manager   *session.Manager
}

func setupTestFixture(t *testing.T, options ...session.Option) *testFixture {
	t.Helper()

	store := fakecredentialstore.NewFakeCredentialStore()
	ft := newFakeTransport()

	m, err := session.New(store, ft, options...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	return &testFixture{store: store, transport: ft, manager: m}
}

// restored runs Restore against an empty store so SignIn is accepted
func (f *testFixture) restored(t *testing.T) *testFixture {
	t.Helper()
	require.Equal(t, session.StateAbsent, f.manager.Restore(context.Background()))
	return f
}

// signedIn drives the fixture to StatePresent as Ana
func (f *testFixture) signedIn(t *testing.T) *testFixture {
	t.Helper()
	f.restored(t)
	require.NoError(t, f.manager.SignIn(context.Background(), testEmail, testPassword))
	require.Equal(t, session.StatePresent, f.manager.State())
	return f
}

// requireConsistent checks user, token and header are all set or all unset
func (f *testFixture) requireConsistent(t *testing.T) {
	t.Helper()
	snap := f.manager.Snapshot()
	header, hasHeader := f.transport.authorization()

	userSet := !snap.User.IsEmpty()
	tokenSet := snap.AccessToken != ""
	require.Equal(t, userSet, tokenSet, "user and token must be co-present")
	require.Equal(t, tokenSet, hasHeader, "header must follow the token")
	if hasHeader {
		require.Equal(t, "Bearer "+snap.AccessToken, header)
	}
	require.Equal(t, tokenSet, snap.State == session.StatePresent)
}

// requireStoreEmpty checks both records are gone
func (f *testFixture) requireStoreEmpty(t *testing.T) {
	t.Helper()
	user, pair := f.store.Snapshot()
	require.Nil(t, user)
	require.Nil(t, pair)
}

func seedAna(store *fakecredentialstore.FakeCredentialStore) {
	store.Seed(&users.User{ID: "u1", Name: "Ana"}, &credentials.TokenPair{AccessToken: "tok-1", RefreshToken: "rt-1"})
}
