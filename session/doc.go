// Package session owns the client's authenticated session.
//
// A Manager holds the in-memory session (user + access token), keeps the
// transport's Authorization header and the credential store consistent with
// it, and publishes snapshots to observers. Restore, SignIn and SignOut are
// serialized: at most one session mutation is in flight at a time, so an
// invalidation raised by the transport during a sign-in is applied after the
// sign-in resolves.
//
// Lifecycle: New registers the Manager's invalidation handler with the
// transport and Close unregisters it. Restore must run once at startup before
// SignIn is accepted.
package session
