package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"supatodo/internal/service"
	"supatodo/internal/session"
	"supatodo/internal/tasks"
)

// mounted is a dashboard instance bound to one browser session. It lives
// between requests so local order and edit mode survive redirects.
type mounted struct {
	id    string
	sess  *service.Session
	guard *session.Guard
	view  *tasks.View
	email string

	mu       sync.Mutex
	lastSeen time.Time
}

func (m *mounted) touch(now time.Time) {
	m.mu.Lock()
	m.lastSeen = now
	m.mu.Unlock()
}

func (m *mounted) idleSince(now time.Time) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return now.Sub(m.lastSeen)
}

// authenticated reports whether the guard still admits the view.
func (m *mounted) authenticated() bool {
	return m.guard.State() == session.Authenticated
}

// registry holds the mounted dashboards keyed by view id.
type registry struct {
	mu    sync.Mutex
	views map[string]*mounted
	now   func() time.Time
}

func newRegistry() *registry {
	return &registry{views: make(map[string]*mounted), now: time.Now}
}

func (r *registry) newID() string {
	return uuid.NewString()
}

func (r *registry) add(m *mounted) {
	m.touch(r.now())
	r.mu.Lock()
	r.views[m.id] = m
	r.mu.Unlock()
}

// get returns the view with id and marks it used.
func (r *registry) get(id string) (*mounted, bool) {
	if id == "" {
		return nil, false
	}
	r.mu.Lock()
	m, ok := r.views[id]
	r.mu.Unlock()
	if ok {
		m.touch(r.now())
	}
	return m, ok
}

// unmount deactivates and forgets the view with id.
func (r *registry) unmount(id string) {
	if id == "" {
		return
	}
	r.mu.Lock()
	m, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()
	if ok {
		m.guard.Deactivate()
	}
}

// sweep unmounts views idle for longer than idle or no longer authenticated.
// It returns the number removed.
func (r *registry) sweep(idle time.Duration) int {
	now := r.now()
	var stale []string
	r.mu.Lock()
	for id, m := range r.views {
		if !m.authenticated() || (idle > 0 && m.idleSince(now) > idle) {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()

	for _, id := range stale {
		r.unmount(id)
	}
	return len(stale)
}

// runSweeper sweeps every interval until ctx is done.
func (r *registry) runSweeper(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.sweep(idle)
		}
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// closeAll unmounts every view.
func (r *registry) closeAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.views))
	for id := range r.views {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.unmount(id)
	}
}
