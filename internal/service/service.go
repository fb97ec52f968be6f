// Package service defines the backend-agnostic contracts for the identity
// provider and the data table service.
package service

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

var (
	// ErrNoUser indicates there is no authenticated user for a session.
	ErrNoUser = errors.New("no current user")

	// ErrUnauthorized indicates the backend rejected the credentials or token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the backend has no such resource.
	ErrNotFound = errors.New("not found")

	// ErrTimeout indicates a backend call did not complete in time.
	ErrTimeout = errors.New("request timed out")
)

// IdentityProvider is the external authentication service.
// Sessions are always passed explicitly; implementations hold no ambient
// "current user".
type IdentityProvider interface {
	// CurrentUser asks the provider who owns sess.
	// Returns ErrNoUser when sess is nil or no longer valid.
	CurrentUser(ctx context.Context, sess *Session) (User, error)

	// SignIn exchanges email and password for a session.
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// SignUp registers a new account. The returned session is nil when the
	// provider requires email confirmation before the first sign-in.
	SignUp(ctx context.Context, email, password string) (*Session, error)

	// SignOut ends every session of the user owning sess.
	SignOut(ctx context.Context, sess *Session) error

	// RestoreSession rebuilds a session handle from stored tokens.
	RestoreSession(tok *oauth2.Token) (*Session, error)

	// Subscribe registers fn for session change notifications.
	// The returned function removes the subscription; calling it more than
	// once is harmless.
	Subscribe(fn func(Event)) (unsubscribe func())
}

// DataTable is the external row-per-user data table service.
// Implementations are bound to one session; row filtering by owner is the
// caller's responsibility.
type DataTable interface {
	// Select decodes all rows of table matching q into dst (a pointer to a slice).
	Select(ctx context.Context, table string, q Query, dst any) error

	// Insert writes row and decodes the created row into dst.
	Insert(ctx context.Context, table string, row any, dst any) error

	// Update applies patch to every row matching filters.
	Update(ctx context.Context, table string, filters []Filter, patch any) error

	// Delete removes every row matching filters.
	Delete(ctx context.Context, table string, filters []Filter) error
}

// TableOpener binds a DataTable to a session.
type TableOpener interface {
	Tables(ctx context.Context, sess *Session) DataTable
}

// Backend is the full set of external collaborators.
type Backend interface {
	IdentityProvider
	TableOpener
}
