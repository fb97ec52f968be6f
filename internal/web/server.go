// Package web serves the login, signup and dashboard pages.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"

	"supatodo/internal/config"
	"supatodo/internal/logging"
	"supatodo/internal/service"
	"supatodo/internal/session"
	"supatodo/internal/tasks"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pathLogin     = session.LoginPath
	pathSignup    = "/signup"
	pathDashboard = "/dashboard"

	shutdownTimeout = 5 * time.Second
)

// Server is the web front end.
type Server struct {
	backend service.Backend
	cfg     *config.Config
	log     *slog.Logger
	cookies sessions.Store
	views   *registry
	tmpl    *template.Template
	router  *mux.Router

	// base outlives requests; mounted views make backend calls with it.
	base context.Context
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCookieStore replaces the cookie session store.
func WithCookieStore(store sessions.Store) Option {
	return func(s *Server) { s.cookies = store }
}

// New creates a Server for backend configured by cfg.
func New(backend service.Backend, cfg *config.Config, opts ...Option) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s := &Server{
		backend: backend,
		cfg:     cfg,
		log:     logging.Discard(),
		views:   newRegistry(),
		tmpl:    tmpl,
		base:    context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cookies == nil {
		hashKey, blockKey, err := sessionKeys(cfg.Server.SessionKey)
		if err != nil {
			return nil, err
		}
		if cfg.Server.SessionKey == "" {
			s.log.Warn("server.session_key is not set; sessions will not survive a restart")
		}
		s.cookies = newCookieStore(hashKey, blockKey, cfg.Server.SecureCookies)
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc(pathLogin, s.handleLoginPage).Methods(http.MethodGet)
	r.HandleFunc(pathLogin, s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc(pathSignup, s.handleSignupPage).Methods(http.MethodGet)
	r.HandleFunc(pathSignup, s.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	d := r.PathPrefix(pathDashboard).Subrouter()
	d.HandleFunc("", s.handleDashboard).Methods(http.MethodGet)
	d.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	d.HandleFunc("/tasks", s.intent(s.addTask)).Methods(http.MethodPost)
	d.HandleFunc("/tasks/{id}/toggle", s.intent(s.toggleTask)).Methods(http.MethodPost)
	d.HandleFunc("/tasks/{id}/edit", s.intent(s.editTask)).Methods(http.MethodPost)
	d.HandleFunc("/tasks/{id}/save", s.intent(s.saveTask)).Methods(http.MethodPost)
	d.HandleFunc("/tasks/{id}/cancel", s.intent(s.cancelEdit)).Methods(http.MethodPost)
	d.HandleFunc("/tasks/{id}/delete", s.intent(s.deleteTask)).Methods(http.MethodPost)
	d.HandleFunc("/tasks/{id}/move", s.intent(s.moveTask)).Methods(http.MethodPost)
	d.HandleFunc("/refresh", s.intent(s.refresh)).Methods(http.MethodPost)
	d.HandleFunc("/dismiss", s.intent(s.dismiss)).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, pathLogin, http.StatusSeeOther)
	})
	s.router = r
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.log, s.router)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.base = ctx

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	idle := s.cfg.Server.ViewIdle
	go s.views.runSweeper(ctx, sweepInterval(idle), idle)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.views.closeAll()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	err := srv.Shutdown(shutdownCtx)
	s.views.closeAll()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func sweepInterval(idle time.Duration) time.Duration {
	if idle <= 0 {
		return time.Minute
	}
	if iv := idle / 4; iv > 10*time.Second {
		return iv
	}
	return 10 * time.Second
}

func (s *Server) storeFor(ctx context.Context, sess *service.Session) *tasks.Store {
	return tasks.NewStore(s.backend.Tables(ctx, sess),
		tasks.WithTable(s.cfg.Tasks.Table),
		tasks.WithPersistedOrder(s.cfg.Tasks.PersistOrder()),
	)
}

func (s *Server) failurePolicy() tasks.FailurePolicy {
	if s.cfg.Tasks.Rollback() {
		return tasks.RollbackOnFailure
	}
	return tasks.KeepOnFailure
}
