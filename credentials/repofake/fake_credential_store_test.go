package fakecredentialstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrsteele09/go-marketspace-session/credentials"
	fakecredentialstore "github.com/jrsteele09/go-marketspace-session/credentials/repofake"
	"github.com/jrsteele09/go-marketspace-session/users"
	"github.com/stretchr/testify/require"
)

func TestFakeCredentialStore(t *testing.T) {
	ctx := context.Background()
	s := fakecredentialstore.NewFakeCredentialStore()

	_, err := s.GetUser(ctx)
	require.ErrorIs(t, err, credentials.ErrNotFound)
	_, err = s.GetTokenPair(ctx)
	require.ErrorIs(t, err, credentials.ErrNotFound)

	require.NoError(t, s.SaveUser(ctx, &users.User{ID: "u1"}))
	require.NoError(t, s.SaveTokenPair(ctx, credentials.TokenPair{AccessToken: "tok", RefreshToken: "rt"}))

	u, err := s.GetUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)

	tp, err := s.GetTokenPair(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok", tp.AccessToken)

	require.NoError(t, s.RemoveUser(ctx))
	require.NoError(t, s.RemoveTokenPair(ctx))
	require.NoError(t, s.RemoveTokenPair(ctx))

	user, pair := s.Snapshot()
	require.Nil(t, user)
	require.Nil(t, pair)
}

func TestFakeCredentialStore_FailOnAndHooks(t *testing.T) {
	ctx := context.Background()
	s := fakecredentialstore.NewFakeCredentialStore()
	boom := errors.New("disk full")

	var seen []fakecredentialstore.Op
	s.OnCall(func(op fakecredentialstore.Op) { seen = append(seen, op) })
	s.FailOn(fakecredentialstore.OpSaveUser, boom)

	require.ErrorIs(t, s.SaveUser(ctx, &users.User{ID: "u1"}), boom)
	user, _ := s.Snapshot()
	require.Nil(t, user)

	s.FailOn(fakecredentialstore.OpSaveUser, nil)
	require.NoError(t, s.SaveUser(ctx, &users.User{ID: "u1"}))

	require.Equal(t, []fakecredentialstore.Op{fakecredentialstore.OpSaveUser, fakecredentialstore.OpSaveUser}, seen)
	require.Equal(t, seen, s.Calls())
}

func TestFakeCredentialStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := fakecredentialstore.NewFakeCredentialStore()

	in := &users.User{ID: "u1", Name: "Ana", Extra: map[string]any{"created_at": "2023-01-01"}}
	require.NoError(t, s.SaveUser(ctx, in))
	in.Name = "changed"
	in.Extra["created_at"] = "changed"

	out, err := s.GetUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "Ana", out.Name)
	require.Equal(t, "2023-01-01", out.Extra["created_at"])

	out.Name = "changed"
	again, err := s.GetUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "Ana", again.Name)

	require.NoError(t, s.SaveTokenPair(ctx, credentials.TokenPair{AccessToken: "tok"}))
	tp, err := s.GetTokenPair(ctx)
	require.NoError(t, err)
	tp.AccessToken = "changed"
	_, pair := s.Snapshot()
	require.Equal(t, "tok", pair.AccessToken)
}
