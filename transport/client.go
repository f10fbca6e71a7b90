package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// HeaderAuthorization is the default-header slot owned by the session manager.
	HeaderAuthorization = "Authorization"
	// HeaderRequestID carries a fresh UUID on every request.
	HeaderRequestID = "X-Request-ID"

	defaultSessionPath = "/sessions"
	defaultTimeout     = 30 * time.Second
	maxErrorBody       = 64 << 10
)

type invalidationHandler struct {
	id      uuid.UUID
	handler func()
}

// Client issues requests to the marketplace API. It owns a set of default
// headers applied to every request and a registry of handlers invoked when an
// authenticated request fails because the session is no longer accepted.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	sessionPath string
	logger      zerolog.Logger
	nowFunc     func() time.Time

	headersLock sync.RWMutex
	headers     http.Header

	handlersLock sync.Mutex
	handlers     []invalidationHandler
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithSessionPath overrides the session-creation endpoint path.
func WithSessionPath(path string) Option {
	return func(c *Client) {
		c.sessionPath = path
	}
}

// WithNowFunc sets the clock used to judge bearer expiry (primarily for testing)
func WithNowFunc(now func() time.Time) Option {
	return func(c *Client) {
		c.nowFunc = now
	}
}

// WithLogger sets the client's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, options ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "[transport.New] invalid base URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("[transport.New] base URL must be absolute: %q", baseURL)
	}

	c := &Client{
		baseURL:     u,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		sessionPath: defaultSessionPath,
		logger:      log.With().Str("component", "transport").Logger(),
		nowFunc:     time.Now,
		headers:     http.Header{},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SetDefaultHeader sets a header attached to every subsequent request.
func (c *Client) SetDefaultHeader(key, value string) {
	c.headersLock.Lock()
	defer c.headersLock.Unlock()
	c.headers.Set(key, value)
}

// DeleteDefaultHeader stops attaching key to requests.
func (c *Client) DeleteDefaultHeader(key string) {
	c.headersLock.Lock()
	defer c.headersLock.Unlock()
	c.headers.Del(key)
}

// DefaultHeader returns the current default value for key, or "".
func (c *Client) DefaultHeader(key string) string {
	c.headersLock.RLock()
	defer c.headersLock.RUnlock()
	return c.headers.Get(key)
}

// RegisterInvalidationHandler adds handler to the set invoked on session
// invalidation. The returned function removes it and is safe to call twice.
func (c *Client) RegisterInvalidationHandler(handler func()) (unregister func()) {
	id := uuid.New()

	c.handlersLock.Lock()
	c.handlers = append(c.handlers, invalidationHandler{id: id, handler: handler})
	c.handlersLock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.handlersLock.Lock()
			defer c.handlersLock.Unlock()
			for i, h := range c.handlers {
				if h.id == id {
					c.handlers = append(c.handlers[:i], c.handlers[i+1:]...)
					return
				}
			}
		})
	}
}

// Invalidate runs every registered handler in registration order. Handlers
// run on the caller's goroutine, outside the registry lock.
func (c *Client) Invalidate() {
	c.handlersLock.Lock()
	handlers := make([]invalidationHandler, len(c.handlers))
	copy(handlers, c.handlers)
	c.handlersLock.Unlock()

	c.logger.Info().Int("handlers", len(handlers)).Msg("session invalidated by transport")
	for _, h := range handlers {
		h.handler()
	}
}

func (c *Client) resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil || ref.IsAbs() {
		return path
	}
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(ref.Path, "/")
	u.RawQuery = ref.RawQuery
	return u.String()
}

// applyDefaults copies default headers that the request does not set itself.
func (c *Client) applyDefaults(req *http.Request) {
	c.headersLock.RLock()
	for k, vs := range c.headers {
		if _, ok := req.Header[k]; ok {
			continue
		}
		req.Header[k] = append([]string(nil), vs...)
	}
	c.headersLock.RUnlock()

	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.New().String())
	}
}

// CreateSession posts the credentials to the session endpoint. A rejected
// sign-in is a credential failure and never triggers invalidation handlers.
func (c *Client) CreateSession(ctx context.Context, email, password string) (*SessionResponse, error) {
	body, err := json.Marshal(SessionRequest{Email: email, Password: password})
	if err != nil {
		return nil, errors.Wrap(err, "[Client.CreateSession] marshal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(c.sessionPath), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.CreateSession] new request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyDefaults(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.CreateSession] send")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newStatusError(resp.StatusCode, data)
	}

	var sr SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, errors.Wrap(ErrMalformedResponse, err.Error())
	}
	return &sr, nil
}
