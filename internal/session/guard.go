// Package session gates access to the task view on the identity provider's
// view of the current session.
package session

import (
	"context"
	"log/slog"
	"sync"

	"supatodo/internal/logging"
	"supatodo/internal/service"
)

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/login"

// State is the guard's lifecycle state.
type State int

const (
	Checking State = iota
	Authenticated
	Redirecting
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Authenticated:
		return "authenticated"
	case Redirecting:
		return "redirecting"
	}
	return "unknown"
}

// Identity is the part of the identity provider a Guard needs.
type Identity interface {
	CurrentUser(ctx context.Context, sess *service.Session) (service.User, error)
	Subscribe(fn func(service.Event)) (unsubscribe func())
}

// Guard admits a view only while its session has a current user.
// A Guard is activated at most once; create a new one per mount.
type Guard struct {
	identity Identity
	navigate func(path string)
	log      *slog.Logger

	mu          sync.Mutex
	state       State
	sess        *service.Session
	user        service.User
	started     bool
	active      bool
	deactivated bool
	unsubscribe func()
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithGuardLogger sets the logger.
func WithGuardLogger(l *slog.Logger) GuardOption {
	return func(g *Guard) {
		if l != nil {
			g.log = l
		}
	}
}

// NewGuard creates a guard that calls navigate with LoginPath when it redirects.
func NewGuard(identity Identity, navigate func(path string), opts ...GuardOption) *Guard {
	g := &Guard{identity: identity, navigate: navigate, log: logging.Discard()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Activate asks the provider for the owner of sess. It returns the user and
// true when the view may render. Any failure, a nil session included, is
// treated as no user and redirects.
//
// The guard subscribes to session changes before the check so a sign-out
// racing with it still redirects. A guard deactivated before Activate stays
// torn down: Activate returns false without subscribing or navigating.
func (g *Guard) Activate(ctx context.Context, sess *service.Session) (service.User, bool) {
	g.mu.Lock()
	if g.deactivated && !g.started {
		g.started = true
		g.mu.Unlock()
		return service.User{}, false
	}
	if g.started {
		user, ok := g.user, g.state == Authenticated
		g.mu.Unlock()
		return user, ok
	}
	g.started = true
	g.active = true
	g.sess = sess
	g.mu.Unlock()

	unsubscribe := g.identity.Subscribe(g.onEvent)
	g.mu.Lock()
	if !g.active {
		// Deactivated while subscribing.
		g.mu.Unlock()
		unsubscribe()
		return service.User{}, false
	}
	g.unsubscribe = unsubscribe
	g.mu.Unlock()

	if sess == nil {
		g.redirect("no session")
		return service.User{}, false
	}

	user, err := g.identity.CurrentUser(ctx, sess)
	if err != nil {
		g.log.Debug("identity check failed", "err", err)
		g.redirect("no current user")
		return service.User{}, false
	}

	g.mu.Lock()
	if g.state != Checking || !g.active {
		g.mu.Unlock()
		return service.User{}, false
	}
	g.state = Authenticated
	g.user = user
	g.mu.Unlock()
	return user, true
}

func (g *Guard) onEvent(e service.Event) {
	if e.Type != service.SignedOut {
		return
	}
	g.mu.Lock()
	affected := e.Affects(g.sess)
	g.mu.Unlock()
	if affected {
		g.redirect("signed out")
	}
}

// redirect moves to Redirecting and navigates once. It does nothing after
// Deactivate.
func (g *Guard) redirect(reason string) {
	g.mu.Lock()
	if !g.active || g.state == Redirecting {
		g.mu.Unlock()
		return
	}
	g.state = Redirecting
	g.mu.Unlock()

	g.log.Debug("redirecting to login", "reason", reason)
	if g.navigate != nil {
		g.navigate(LoginPath)
	}
}

// Deactivate releases the change subscription. It is safe to call more than
// once. Calling it before Activate makes a later Activate a no-op.
func (g *Guard) Deactivate() {
	g.mu.Lock()
	g.active = false
	g.deactivated = true
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// State returns the current state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// User returns the admitted user; zero unless Authenticated.
func (g *Guard) User() service.User {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.user
}
