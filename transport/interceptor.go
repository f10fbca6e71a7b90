package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// Do sends an authenticated API request. Default headers are attached first.
//
// Two outcomes invalidate the session: an attached JWT bearer whose exp has
// passed (the request is not sent, ErrTokenExpired), and a 401 response to a
// request that carried a bearer (ErrUnauthorized via *StatusError). In both
// cases every registered invalidation handler runs before Do returns, but only
// while the request's bearer is still the default Authorization header. A 401
// for a token that has since been replaced leaves the newer session alone.
// Other responses, including non-2xx ones, are returned to the caller.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.applyDefaults(req)

	bearer, hasBearer := BearerToken(req.Header.Get(HeaderAuthorization))
	if hasBearer {
		if ti, err := Introspect(bearer); err == nil && ti.Expired(c.nowFunc()) {
			c.logger.Debug().Str("request_id", req.Header.Get(HeaderRequestID)).Msg("bearer expired before send")
			c.invalidateFor(bearer)
			return nil, ErrTokenExpired
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Do] send")
	}

	if resp.StatusCode == http.StatusUnauthorized && hasBearer {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		c.logger.Debug().
			Str("request_id", req.Header.Get(HeaderRequestID)).
			Str("path", req.URL.Path).
			Msg("bearer rejected by API")
		c.invalidateFor(bearer)
		return nil, newStatusError(resp.StatusCode, data)
	}
	return resp, nil
}

// invalidateFor runs the invalidation handlers when bearer is the token the
// client currently attaches by default.
func (c *Client) invalidateFor(bearer string) {
	current, ok := BearerToken(c.DefaultHeader(HeaderAuthorization))
	if !ok || current != bearer {
		c.logger.Debug().Msg("rejected bearer is no longer current, session kept")
		return
	}
	c.Invalidate()
}

// GetJSON issues an authenticated GET for path and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path), nil)
	if err != nil {
		return errors.Wrap(err, "[Client.GetJSON] new request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newStatusError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(ErrMalformedResponse, err.Error())
	}
	return nil
}
