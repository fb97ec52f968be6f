package service

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// User is an authenticated identity as reported by the identity provider.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// Session is the handle of an authenticated identity.
// The token may be replaced when the backend refreshes it; use Token and
// SetToken rather than touching the field from several goroutines.
type Session struct {
	// ID is the provider's session identifier, empty if unknown.
	ID string

	// User is the owner of the session as known when the session was created
	// or restored.
	User User

	mu    sync.Mutex
	token *oauth2.Token
}

// NewSession creates a session handle.
func NewSession(id string, user User, tok *oauth2.Token) *Session {
	return &Session{ID: id, User: user, token: tok}
}

// Token returns the current token.
func (s *Session) Token() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SetToken replaces the current token.
func (s *Session) SetToken(tok *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tok
}

// EventType identifies a session change notification.
type EventType string

const (
	SignedIn       EventType = "signed_in"
	SignedOut      EventType = "signed_out"
	TokenRefreshed EventType = "token_refreshed"
)

// Event is a session change notification.
type Event struct {
	Type   EventType
	UserID string

	// SessionID is empty when the event applies to every session of UserID.
	SessionID string
}

// Affects reports whether e concerns sess.
func (e Event) Affects(sess *Session) bool {
	if sess == nil || e.UserID != sess.User.ID {
		return false
	}
	return e.SessionID == "" || e.SessionID == sess.ID
}

// Filter restricts a query or mutation to rows whose Column equals Value.
type Filter struct {
	Column string
	Value  string
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Value: fmt.Sprint(value)}
}

// Order sorts query results by Column.
type Order struct {
	Column     string
	Descending bool
	NullsFirst bool
}

// Query describes a select.
type Query struct {
	Filters []Filter
	Order   []Order
}
