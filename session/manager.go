package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-marketspace-session/credentials"
	"github.com/jrsteele09/go-marketspace-session/transport"
	"github.com/jrsteele09/go-marketspace-session/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Transport is the part of the transport client the Manager drives.
type Transport interface {
	CreateSession(ctx context.Context, identifier, secret string) (*transport.SessionResponse, error)
	SetDefaultHeader(key, value string)
	DeleteDefaultHeader(key string)
	RegisterInvalidationHandler(handler func()) (unregister func())
}

type observer struct {
	id uuid.UUID
	fn func(Snapshot)
}

// Manager is the session state machine. It is safe for concurrent use.
//
// Observers must not call Restore, SignIn, SignOut or Close synchronously
// from their callback.
type Manager struct {
	store     credentials.Store
	transport Transport
	logger    zerolog.Logger
	metrics   *Metrics

	// opLock serializes Restore, SignIn and SignOut.
	opLock sync.Mutex

	mu          sync.RWMutex
	state       State
	user        *users.User
	accessToken string
	accessExp   *time.Time
	sessionID   string
	pending     int
	closed      bool
	observers   []observer

	notifyLock sync.Mutex
	unregister func()
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the Manager's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics records transitions and sign-in outcomes.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// New creates a Manager in StateUnknown and registers its invalidation
// handler with t. Call Close to unregister it.
func New(store credentials.Store, t Transport, options ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[session.New] credential store is required")
	}
	if t == nil {
		return nil, errors.New("[session.New] transport is required")
	}

	m := &Manager{
		store:     store,
		transport: t,
		logger:    log.With().Str("component", "session").Logger(),
		state:     StateUnknown,
	}
	for _, opt := range options {
		opt(m)
	}

	m.unregister = t.RegisterInvalidationHandler(m.handleInvalidation)
	return m, nil
}

// Close unregisters the invalidation handler and drops observers. It waits for
// an in-flight mutation to finish. The persisted session is left intact.
func (m *Manager) Close() error {
	m.opLock.Lock()
	defer m.opLock.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.observers = nil
	unregister := m.unregister
	m.mu.Unlock()

	unregister()
	m.logger.Debug().Msg("session manager closed")
	return nil
}

func (m *Manager) handleInvalidation() {
	m.metrics.invalidated()
	m.logger.Info().Msg("transport invalidated the session, signing out")
	m.SignOut(context.Background())
}

// Restore rebuilds the session from the credential store. It runs once: later
// calls return the current state without touching the store. Store failures
// are treated as no session. A store holding only one of the two records is
// reconciled by removing both.
func (m *Manager) Restore(ctx context.Context) State {
	m.begin()
	defer m.end()

	m.opLock.Lock()
	defer m.opLock.Unlock()

	m.mu.RLock()
	state, closed := m.state, m.closed
	m.mu.RUnlock()
	if closed || state != StateUnknown {
		return state
	}

	user, userErr := m.store.GetUser(ctx)
	pair, pairErr := m.store.GetTokenPair(ctx)
	if userErr != nil && !errors.Is(userErr, credentials.ErrNotFound) {
		m.logger.Warn().Err(userErr).Msg("restore: reading user failed, starting signed out")
	}
	if pairErr != nil && !errors.Is(pairErr, credentials.ErrNotFound) {
		m.logger.Warn().Err(pairErr).Msg("restore: reading token pair failed, starting signed out")
	}

	userPresent := userErr == nil && !user.IsEmpty()
	pairPresent := pairErr == nil && !pair.IsEmpty()

	if userPresent && pairPresent {
		m.commit(user, pair.AccessToken)
		return StatePresent
	}

	m.clearMemory()
	if userPresent && missing(pairErr) || pairPresent && missing(userErr) {
		m.logger.Warn().Bool("user", userPresent).Bool("token", pairPresent).Msg("restore: discarding half-written session")
		m.clearStore(ctx)
	}
	return StateAbsent
}

// missing reports whether a read came back without a usable record, as opposed
// to failing outright.
func missing(err error) bool {
	return err == nil || errors.Is(err, credentials.ErrNotFound)
}

// SignIn authenticates with the transport, persists the user and token pair,
// then commits the session in memory and on the transport header. On any
// error the session is left exactly as it was.
func (m *Manager) SignIn(ctx context.Context, identifier, secret string) error {
	m.begin()
	defer m.end()

	if strings.TrimSpace(identifier) == "" || secret == "" {
		return ErrMissingCredentials
	}

	m.opLock.Lock()
	defer m.opLock.Unlock()

	m.mu.RLock()
	state, closed := m.state, m.closed
	m.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if state == StateUnknown {
		return ErrNotRestored
	}

	resp, err := m.transport.CreateSession(ctx, identifier, secret)
	if err != nil {
		if errors.Is(err, transport.ErrUnauthorized) {
			m.metrics.signIn(signInRejected)
		} else {
			m.metrics.signIn(signInTransport)
		}
		return errors.Wrap(err, "[Manager.SignIn] create session")
	}
	if !resp.Complete() {
		m.metrics.signIn(signInIncomplete)
		return ErrIncompleteResponse
	}

	pair := credentials.TokenPair{AccessToken: resp.AccessToken(), RefreshToken: resp.Refresh()}
	if err := m.persist(ctx, resp.User, pair); err != nil {
		m.metrics.signIn(signInPersist)
		return fmt.Errorf("[Manager.SignIn] %w: %w", ErrPersist, err)
	}

	m.commit(resp.User, pair.AccessToken)
	m.metrics.signIn(signInSuccess)
	return nil
}

// persist writes both records. Without a combined write, a failed token write
// rolls the user record back to what the current session holds.
func (m *Manager) persist(ctx context.Context, user *users.User, pair credentials.TokenPair) error {
	if w, ok := m.store.(credentials.SessionWriter); ok {
		return w.SaveSession(ctx, user, pair)
	}

	if err := m.store.SaveUser(ctx, user); err != nil {
		return errors.Wrap(err, "save user")
	}
	if err := m.store.SaveTokenPair(ctx, pair); err != nil {
		m.mu.RLock()
		prev := m.user.Clone()
		m.mu.RUnlock()

		var rbErr error
		if prev.IsEmpty() {
			rbErr = m.store.RemoveUser(ctx)
		} else {
			rbErr = m.store.SaveUser(ctx, prev)
		}
		if rbErr != nil {
			m.logger.Warn().Err(rbErr).Msg("sign-in: rolling back user record failed")
		}
		return errors.Wrap(err, "save token pair")
	}
	return nil
}

// SignOut ends the session. Memory and the transport header are cleared
// before the store is touched; store failures are logged and swallowed. It is
// safe to call in any state and after Close.
func (m *Manager) SignOut(ctx context.Context) {
	m.begin()
	defer m.end()

	m.opLock.Lock()
	defer m.opLock.Unlock()

	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return
	}

	m.clearMemory()
	m.clearStore(ctx)
}

func (m *Manager) clearStore(ctx context.Context) {
	if c, ok := m.store.(credentials.SessionClearer); ok {
		if err := c.ClearSession(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("clearing stored session failed")
		}
		return
	}
	if err := m.store.RemoveUser(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("removing stored user failed")
	}
	if err := m.store.RemoveTokenPair(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("removing stored token pair failed")
	}
}

// commit moves to StatePresent and sets the Authorization header in one step.
func (m *Manager) commit(user *users.User, accessToken string) {
	var exp *time.Time
	if ti, err := transport.Introspect(accessToken); err == nil {
		exp = ti.Exp
	}

	m.mu.Lock()
	from := m.state
	m.state = StatePresent
	m.user = user.Clone()
	m.accessToken = accessToken
	m.accessExp = exp
	m.sessionID = uuid.New().String()
	m.transport.SetDefaultHeader(transport.HeaderAuthorization, transport.BearerValue(accessToken))
	sessionID, userID := m.sessionID, m.user.ID
	m.mu.Unlock()

	m.metrics.transition(from, StatePresent)
	m.logger.Info().Str("state", StatePresent.String()).Str("session_id", sessionID).Str("user_id", userID).Msg("session present")
	m.publish()
}

// clearMemory moves to StateAbsent and removes the Authorization header.
func (m *Manager) clearMemory() {
	m.mu.Lock()
	from, sessionID := m.state, m.sessionID
	m.state = StateAbsent
	m.user = nil
	m.accessToken = ""
	m.accessExp = nil
	m.sessionID = ""
	m.transport.DeleteDefaultHeader(transport.HeaderAuthorization)
	m.mu.Unlock()

	if from != StateAbsent {
		m.metrics.transition(from, StateAbsent)
		m.logger.Info().Str("state", StateAbsent.String()).Str("session_id", sessionID).Msg("session absent")
	}
	m.publish()
}

func (m *Manager) begin() {
	m.mu.Lock()
	m.pending++
	changed := m.pending == 1
	m.mu.Unlock()
	if changed {
		m.publish()
	}
}

func (m *Manager) end() {
	m.mu.Lock()
	m.pending--
	changed := m.pending == 0
	m.mu.Unlock()
	if changed {
		m.publish()
	}
}
