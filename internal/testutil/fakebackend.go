// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"supatodo/internal/service"
)

// TasksTable is the table seeded by SeedTask.
const TasksTable = "todos"

// ErrInvalidCredentials is returned by SignIn for a wrong email or password.
var ErrInvalidCredentials = errors.New("Invalid login credentials")

// ErrUserExists is returned by SignUp for a registered email.
var ErrUserExists = errors.New("User already registered")

type fakeUser struct {
	user     service.User
	password string
}

// FakeBackend is an in-memory implementation of service.Backend for testing.
type FakeBackend struct {
	mu       sync.Mutex
	users    map[string]*fakeUser        // email -> user
	sessions map[string]*service.Session // access token -> session
	rows     map[string][]map[string]any // table -> rows
	subs     map[int]func(service.Event)
	nextSub  int
	now      time.Time
	calls    map[string]int

	// RequireConfirmation makes SignUp return no session.
	RequireConfirmation bool

	// Error injection for testing
	SignInErr      error
	SignUpErr      error
	SignOutErr     error
	CurrentUserErr error
	SelectErr      error
	InsertErr      error
	UpdateErr      error
	DeleteErr      error
}

var _ service.Backend = (*FakeBackend)(nil)

// NewFakeBackend creates an empty FakeBackend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		users:    make(map[string]*fakeUser),
		sessions: make(map[string]*service.Session),
		rows:     make(map[string][]map[string]any),
		subs:     make(map[int]func(service.Event)),
		now:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		calls:    make(map[string]int),
	}
}

// AddUser registers an account.
func (f *FakeBackend) AddUser(email, password string) service.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(email, password)
}

func (f *FakeBackend) addUserLocked(email, password string) service.User {
	u := &fakeUser{
		user:     service.User{ID: uuid.NewString(), Email: email, CreatedAt: f.tick()},
		password: password,
	}
	f.users[email] = u
	return u.user
}

// NewSession opens a session for user without going through SignIn.
func (f *FakeBackend) NewSession(user service.User) *service.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openLocked(user)
}

func (f *FakeBackend) openLocked(user service.User) *service.Session {
	tok := &oauth2.Token{
		AccessToken:  "access-" + uuid.NewString(),
		TokenType:    "bearer",
		RefreshToken: "refresh-" + uuid.NewString(),
		Expiry:       f.now.Add(24 * 365 * time.Hour),
	}
	sess := service.NewSession(uuid.NewString(), user, tok)
	f.sessions[tok.AccessToken] = sess
	return sess
}

// SeedTask adds a task row owned by owner and returns its id.
func (f *FakeBackend) SeedTask(owner, title string, completed bool) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := map[string]any{"user_id": owner, "title": title, "is_completed": completed}
	return f.insertLocked(TasksTable, row)["id"].(string)
}

// Rows returns a copy of the rows of table in insertion order.
func (f *FakeBackend) Rows(table string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(f.rows[table]))
	for i, r := range f.rows[table] {
		out[i] = copyRow(r)
	}
	return out
}

// Calls returns how often op ("select", "insert", "update", "delete",
// "sign_in", "sign_up", "sign_out", "current_user") was invoked.
func (f *FakeBackend) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FakeBackend) count(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *FakeBackend) tick() time.Time {
	f.now = f.now.Add(time.Minute)
	return f.now
}

func (f *FakeBackend) publish(e service.Event) {
	f.mu.Lock()
	fns := make([]func(service.Event), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}

// Publish delivers e to every subscriber, as the backend would on an
// external change.
func (f *FakeBackend) Publish(e service.Event) {
	f.publish(e)
}

// Subscribers returns the number of live subscriptions.
func (f *FakeBackend) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Subscribe implements service.IdentityProvider.
func (f *FakeBackend) Subscribe(fn func(service.Event)) func() {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

// SignIn implements service.IdentityProvider.
func (f *FakeBackend) SignIn(ctx context.Context, email, password string) (*service.Session, error) {
	f.count("sign_in")
	if f.SignInErr != nil {
		return nil, f.SignInErr
	}
	f.mu.Lock()
	u, ok := f.users[email]
	if !ok || u.password != password {
		f.mu.Unlock()
		return nil, ErrInvalidCredentials
	}
	sess := f.openLocked(u.user)
	f.mu.Unlock()

	f.publish(service.Event{Type: service.SignedIn, UserID: sess.User.ID, SessionID: sess.ID})
	return sess, nil
}

// SignUp implements service.IdentityProvider.
func (f *FakeBackend) SignUp(ctx context.Context, email, password string) (*service.Session, error) {
	f.count("sign_up")
	if f.SignUpErr != nil {
		return nil, f.SignUpErr
	}
	f.mu.Lock()
	if _, ok := f.users[email]; ok {
		f.mu.Unlock()
		return nil, ErrUserExists
	}
	user := f.addUserLocked(email, password)
	if f.RequireConfirmation {
		f.mu.Unlock()
		return nil, nil
	}
	sess := f.openLocked(user)
	f.mu.Unlock()

	f.publish(service.Event{Type: service.SignedIn, UserID: user.ID, SessionID: sess.ID})
	return sess, nil
}

// SignOut implements service.IdentityProvider. It ends every session of the user.
func (f *FakeBackend) SignOut(ctx context.Context, sess *service.Session) error {
	f.count("sign_out")
	if f.SignOutErr != nil {
		return f.SignOutErr
	}
	if sess == nil {
		return nil
	}
	f.mu.Lock()
	for tok, s := range f.sessions {
		if s.User.ID == sess.User.ID {
			delete(f.sessions, tok)
		}
	}
	f.mu.Unlock()

	f.publish(service.Event{Type: service.SignedOut, UserID: sess.User.ID})
	return nil
}

// CurrentUser implements service.IdentityProvider.
func (f *FakeBackend) CurrentUser(ctx context.Context, sess *service.Session) (service.User, error) {
	f.count("current_user")
	if f.CurrentUserErr != nil {
		return service.User{}, f.CurrentUserErr
	}
	if !f.active(sess) {
		return service.User{}, service.ErrNoUser
	}
	return sess.User, nil
}

// RestoreSession implements service.IdentityProvider.
func (f *FakeBackend) RestoreSession(tok *oauth2.Token) (*service.Session, error) {
	if tok == nil {
		return nil, service.ErrNoUser
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[tok.AccessToken]
	if !ok {
		return nil, service.ErrNoUser
	}
	return service.NewSession(sess.ID, sess.User, tok), nil
}

func (f *FakeBackend) active(sess *service.Session) bool {
	if sess == nil || sess.Token() == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sessions[sess.Token().AccessToken]
	return ok
}

// Tables implements service.TableOpener.
func (f *FakeBackend) Tables(ctx context.Context, sess *service.Session) service.DataTable {
	return &fakeTable{f: f, sess: sess}
}

type fakeTable struct {
	f    *FakeBackend
	sess *service.Session
}

func (t *fakeTable) check(op string, injected error) error {
	t.f.count(op)
	if injected != nil {
		return injected
	}
	if !t.f.active(t.sess) {
		return service.ErrUnauthorized
	}
	return nil
}

func matches(row map[string]any, filters []service.Filter) bool {
	for _, flt := range filters {
		v, ok := row[flt.Column]
		if !ok || v == nil || fmt.Sprint(v) != flt.Value {
			return false
		}
	}
	return true
}

func (t *fakeTable) Select(ctx context.Context, table string, q service.Query, dst any) error {
	if err := t.check("select", t.f.SelectErr); err != nil {
		return err
	}
	t.f.mu.Lock()
	var out []map[string]any
	for _, r := range t.f.rows[table] {
		if matches(r, q.Filters) {
			out = append(out, copyRow(r))
		}
	}
	t.f.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		for _, o := range q.Order {
			c := compare(out[i][o.Column], out[j][o.Column], o.NullsFirst)
			if o.Descending {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	if out == nil {
		out = []map[string]any{}
	}
	return roundTrip(out, dst)
}

func (t *fakeTable) Insert(ctx context.Context, table string, row any, dst any) error {
	if err := t.check("insert", t.f.InsertErr); err != nil {
		return err
	}
	var m map[string]any
	if err := roundTrip(row, &m); err != nil {
		return err
	}
	t.f.mu.Lock()
	created := copyRow(t.f.insertLocked(table, m))
	t.f.mu.Unlock()
	if dst == nil {
		return nil
	}
	return roundTrip(created, dst)
}

func (f *FakeBackend) insertLocked(table string, m map[string]any) map[string]any {
	if _, ok := m["id"]; !ok {
		m["id"] = uuid.NewString()
	}
	if _, ok := m["created_at"]; !ok {
		m["created_at"] = f.tick().Format(time.RFC3339Nano)
	}
	f.rows[table] = append(f.rows[table], m)
	return m
}

func (t *fakeTable) Update(ctx context.Context, table string, filters []service.Filter, patch any) error {
	if err := t.check("update", t.f.UpdateErr); err != nil {
		return err
	}
	if len(filters) == 0 {
		return errors.New("update requires a filter")
	}
	var p map[string]any
	if err := roundTrip(patch, &p); err != nil {
		return err
	}
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	for _, r := range t.f.rows[table] {
		if matches(r, filters) {
			for k, v := range p {
				r[k] = v
			}
		}
	}
	return nil
}

func (t *fakeTable) Delete(ctx context.Context, table string, filters []service.Filter) error {
	if err := t.check("delete", t.f.DeleteErr); err != nil {
		return err
	}
	if len(filters) == 0 {
		return errors.New("delete requires a filter")
	}
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	kept := t.f.rows[table][:0]
	for _, r := range t.f.rows[table] {
		if !matches(r, filters) {
			kept = append(kept, r)
		}
	}
	t.f.rows[table] = kept
	return nil
}

func copyRow(r map[string]any) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// roundTrip converts src to dst through JSON, as the real table would.
func roundTrip(src, dst any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// compare orders nil, numbers, strings and bools. Nil sorts last unless nullsFirst.
func compare(a, b any, nullsFirst bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		if nullsFirst {
			return -1
		}
		return 1
	case b == nil:
		if nullsFirst {
			return 1
		}
		return -1
	}
	switch av := a.(type) {
	case float64:
		bv, _ := toFloat(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case int:
		return compare(float64(av), b, nullsFirst)
	case bool:
		bv, _ := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		}
		return 1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
