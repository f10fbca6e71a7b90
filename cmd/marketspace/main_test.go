package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-marketspace-session/internal/config"
	"github.com/jrsteele09/go-marketspace-session/session"
	"github.com/jrsteele09/go-marketspace-session/transport"
	"github.com/stretchr/testify/require"
)

func setupTestFixture(t *testing.T) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		var req transport.SessionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"user":{"id":"u1","name":"Ana","email":"ana@x.com"},"token":"tok-1","refresh_token":"rt-1"}`))
	})
	mux.HandleFunc("GET /users/products", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"p1","name":"Bike"}]`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	t.Setenv("MARKETSPACE_API_URL", server.URL)
	t.Setenv("CREDENTIAL_STORE", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "data", "session.db"))
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), config.New(), args, &out, "")
	return out.String(), err
}

func TestCommands(t *testing.T) {
	setupTestFixture(t)

	_, err := runCommand(t, "whoami")
	require.ErrorIs(t, err, session.ErrNoSession)

	_, err = runCommand(t, "signin", "ana@x.com", "wrong")
	require.ErrorIs(t, err, transport.ErrUnauthorized)

	out, err := runCommand(t, "signin", "ana@x.com", "secret")
	require.NoError(t, err)
	require.Equal(t, "signed in as Ana\n", out)

	out, err = runCommand(t, "whoami")
	require.NoError(t, err)
	require.Contains(t, out, `"email": "ana@x.com"`)

	out, err = runCommand(t, "get", "/users/products")
	require.NoError(t, err)
	require.Contains(t, out, `"Bike"`)

	out, err = runCommand(t, "signout")
	require.NoError(t, err)
	require.Equal(t, "signed out\n", out)

	_, err = runCommand(t, "get", "/users/products")
	require.Error(t, err)
}

func TestCommandErrors(t *testing.T) {
	setupTestFixture(t)

	_, err := runCommand(t)
	require.Error(t, err)

	_, err = runCommand(t, "launch")
	require.ErrorContains(t, err, "unknown command")

	_, err = runCommand(t, "signin", "ana@x.com")
	require.Error(t, err)

	t.Setenv("CREDENTIAL_STORE", "file")
	t.Setenv("CREDENTIAL_KEY", "")
	_, err = runCommand(t, "whoami")
	require.ErrorContains(t, err, "CREDENTIAL_KEY")
}

func TestMetricsFile(t *testing.T) {
	setupTestFixture(t)
	path := filepath.Join(t.TempDir(), "session.prom")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), config.New(), []string{"signin", "ana@x.com", "secret"}, &out, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `marketspace_session_sign_ins_total{result="success"} 1`)
}
