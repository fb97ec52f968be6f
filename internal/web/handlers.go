package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"supatodo/internal/service"
	"supatodo/internal/session"
	"supatodo/internal/tasks"
)

const (
	msgCredentialsRequired = "Email and password are required"
	msgSignupSuccessful    = "Signup successful 🎉"
	msgConfirmEmail        = "Signup successful 🎉 Check your email to confirm the account."
)

// entryPage is the data of the login and signup pages.
type entryPage struct {
	Title   string
	Action  string
	Email   string
	Alert   string
	Success bool
}

// dashboardPage is the data of the dashboard page.
type dashboardPage struct {
	Email string
	State tasks.State
	Error string
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Error("render failed", "template", name, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) browser(r *http.Request) browser {
	sess, err := s.cookies.Get(r, cookieName)
	if err != nil {
		s.log.Debug("discarding unreadable cookie", "err", err)
	}
	return browser{s: sess}
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, b browser) {
	if err := b.save(r, w); err != nil {
		s.log.Error("failed to save cookie", "err", err)
	}
}

// restore rebuilds the session stored in the cookie, or nil.
func (s *Server) restore(b browser) *service.Session {
	tok := b.token()
	if tok == nil {
		return nil
	}
	sess, err := s.backend.RestoreSession(tok)
	if err != nil {
		s.log.Debug("stored session rejected", "err", err)
		return nil
	}
	return sess
}

// unmount tears down the browser's dashboard, if any.
func (s *Server) unmount(b browser) {
	s.views.unmount(b.viewID())
	b.setViewID("")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

func loginPage() entryPage {
	return entryPage{Title: "Login", Action: pathLogin}
}

func signupPage() entryPage {
	return entryPage{Title: "Signup", Action: pathSignup}
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	b := s.browser(r)
	s.unmount(b)
	s.save(w, r, b)
	s.render(w, http.StatusOK, "login.html", loginPage())
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	b := s.browser(r)
	s.unmount(b)
	s.save(w, r, b)
	s.render(w, http.StatusOK, "signup.html", signupPage())
}

// credentials reads the form. ok is false when either field is blank.
func credentials(r *http.Request) (email, password string, ok bool) {
	email = strings.TrimSpace(r.PostFormValue("email"))
	password = r.PostFormValue("password")
	return email, password, email != "" && password != ""
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	page := loginPage()
	email, password, ok := credentials(r)
	page.Email = email
	if !ok {
		page.Alert = msgCredentialsRequired
		s.render(w, http.StatusUnprocessableEntity, "login.html", page)
		return
	}

	sess, err := s.backend.SignIn(r.Context(), email, password)
	if err != nil {
		s.log.Info("sign-in rejected", "email", email, "err", err)
		page.Alert = err.Error()
		s.render(w, http.StatusOK, "login.html", page)
		return
	}

	b := s.browser(r)
	s.unmount(b)
	b.clear()
	b.setSession(sess)
	s.save(w, r, b)
	http.Redirect(w, r, pathDashboard, http.StatusSeeOther)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	page := signupPage()
	email, password, ok := credentials(r)
	page.Email = email
	if !ok {
		page.Alert = msgCredentialsRequired
		s.render(w, http.StatusUnprocessableEntity, "signup.html", page)
		return
	}

	sess, err := s.backend.SignUp(r.Context(), email, password)
	if err != nil {
		s.log.Info("sign-up rejected", "email", email, "err", err)
		page.Alert = err.Error()
		s.render(w, http.StatusOK, "signup.html", page)
		return
	}

	page.Success = true
	page.Alert = msgSignupSuccessful
	if sess == nil {
		page.Alert = msgConfirmEmail
	} else {
		b := s.browser(r)
		s.unmount(b)
		b.clear()
		b.setSession(sess)
		s.save(w, r, b)
	}
	s.render(w, http.StatusOK, "signup.html", page)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	b := s.browser(r)
	sess := s.restore(b)
	if m, ok := s.views.get(b.viewID()); ok {
		sess = m.sess
	}
	if sess != nil {
		if err := s.backend.SignOut(r.Context(), sess); err != nil {
			s.log.Warn("sign-out failed", "err", err)
		}
	}
	s.unmount(b)
	b.clear()
	s.save(w, r, b)
	http.Redirect(w, r, pathLogin, http.StatusSeeOther)
}

// mount activates a guard for the cookie session and loads its task list.
// It returns nil when the guard redirects.
func (s *Server) mount(r *http.Request, b browser) *mounted {
	sess := s.restore(b)
	m := &mounted{id: s.views.newID(), sess: sess}
	m.guard = session.NewGuard(s.backend, func(string) {
		s.log.Info("dashboard redirected to login", "view", m.id)
	}, session.WithGuardLogger(s.log))

	user, ok := m.guard.Activate(r.Context(), sess)
	if !ok {
		m.guard.Deactivate()
		return nil
	}
	m.email = user.Email
	m.view = tasks.NewView(s.storeFor(s.base, sess), user.ID,
		tasks.WithFailurePolicy(s.failurePolicy()),
		tasks.WithLogger(s.log.With("view", m.id)),
	)
	if err := m.view.Load(r.Context()); err != nil {
		s.log.Warn("initial load failed", "view", m.id, "err", err)
	}
	s.views.add(m)
	return m
}

// current returns the browser's mounted dashboard while its guard admits it.
// A redirected view is unmounted.
func (s *Server) current(b browser) (*mounted, bool) {
	m, ok := s.views.get(b.viewID())
	if !ok {
		return nil, false
	}
	if !m.authenticated() {
		s.unmount(b)
		return nil, false
	}
	return m, true
}

func (s *Server) toLogin(w http.ResponseWriter, r *http.Request, b browser) {
	s.unmount(b)
	b.clear()
	s.save(w, r, b)
	http.Redirect(w, r, pathLogin, http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	b := s.browser(r)
	m, ok := s.current(b)
	if !ok {
		if m = s.mount(r, b); m == nil {
			s.toLogin(w, r, b)
			return
		}
		b.setViewID(m.id)
	}
	b.setSession(m.sess)
	s.save(w, r, b)

	page := dashboardPage{Email: m.email, State: m.view.Snapshot()}
	if page.State.Err != nil {
		page.Error = page.State.Err.Error()
	}
	s.render(w, http.StatusOK, "dashboard.html", page)
}

// intent adapts a dashboard mutation. Without an admitting view the browser
// goes through GET /dashboard, which mounts or redirects.
func (s *Server) intent(fn func(r *http.Request, v *tasks.View) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := s.browser(r)
		m, ok := s.current(b)
		if !ok {
			s.save(w, r, b)
			http.Redirect(w, r, pathDashboard, http.StatusSeeOther)
			return
		}
		if err := fn(r, m.view); err != nil && !isValidation(err) {
			s.log.Debug("dashboard intent failed", "path", r.URL.Path, "err", err)
		}
		b.setSession(m.sess)
		s.save(w, r, b)
		http.Redirect(w, r, pathDashboard, http.StatusSeeOther)
	}
}

func isValidation(err error) bool {
	return errors.Is(err, tasks.ErrBlankTitle) || errors.Is(err, tasks.ErrUnknownTask) || errors.Is(err, tasks.ErrNotEditing)
}

func taskID(r *http.Request) tasks.ID {
	return tasks.ID(mux.Vars(r)["id"])
}

func (s *Server) addTask(r *http.Request, v *tasks.View) error {
	_, err := v.Add(r.Context(), r.PostFormValue("title"))
	return err
}

func (s *Server) toggleTask(r *http.Request, v *tasks.View) error {
	return v.Toggle(r.Context(), taskID(r))
}

func (s *Server) editTask(r *http.Request, v *tasks.View) error {
	return v.StartEdit(taskID(r))
}

func (s *Server) saveTask(r *http.Request, v *tasks.View) error {
	return v.SaveEdit(r.Context(), taskID(r), r.PostFormValue("title"))
}

func (s *Server) cancelEdit(r *http.Request, v *tasks.View) error {
	v.CancelEdit()
	return nil
}

func (s *Server) deleteTask(r *http.Request, v *tasks.View) error {
	return v.Delete(r.Context(), taskID(r))
}

func (s *Server) moveTask(r *http.Request, v *tasks.View) error {
	return v.Reorder(r.Context(), taskID(r), tasks.ID(r.PostFormValue("target")))
}

func (s *Server) refresh(r *http.Request, v *tasks.View) error {
	return v.Load(r.Context())
}

func (s *Server) dismiss(r *http.Request, v *tasks.View) error {
	v.DismissError()
	return nil
}

// handleEvents streams a redirect event when the session ends while the
// page is open. Each connection has its own guard, released on disconnect.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	b := s.browser(r)
	sess := s.restore(b)
	if m, ok := s.current(b); ok {
		sess = m.sess
	}

	redirect := make(chan string, 1)
	guard := session.NewGuard(s.backend, func(path string) {
		select {
		case redirect <- path:
		default:
		}
	}, session.WithGuardLogger(s.log))
	defer guard.Deactivate()
	guard.Activate(r.Context(), sess)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	select {
	case path := <-redirect:
		fmt.Fprintf(w, "event: redirect\ndata: %s\n\n", path)
		flusher.Flush()
	case <-r.Context().Done():
	}
}
