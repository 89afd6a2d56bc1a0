// Package server exposes the aggregator over HTTP.
//
// Routes:
//
//	GET /api/repos?username=&includeForks=&includeArchived=&sortBy=
//	GET /api/commits?owner=&repo=&since=
//	GET /api/progress-md?owner=&repo=
//	GET /api/case-study?owner=&repo=
//	GET /api/activity?owner=&repo=&since=|days=
//	GET /healthz
//
// Successful responses carry X-Cache (HIT, MISS or REVALIDATED) and a public
// Cache-Control max-age equal to the cache TTL. Errors are JSON objects with
// "error" and "code" fields.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gundaminthecode/showcase/pkg/aggregator"
	"github.com/gundaminthecode/showcase/pkg/cache"
	"github.com/gundaminthecode/showcase/pkg/httputil"
)

// Service is the aggregator surface the handlers call.
type Service interface {
	ListRepositories(ctx context.Context, q aggregator.RepoQuery) ([]aggregator.RepositorySummary, cache.Status, error)
	ListCommits(ctx context.Context, q aggregator.CommitQuery) ([]aggregator.CommitSummary, cache.Status, error)
	FetchDocument(ctx context.Context, q aggregator.DocumentQuery) (aggregator.DocumentResult, cache.Status, error)
	Activity(ctx context.Context, q aggregator.CommitQuery) (aggregator.Activity, cache.Status, error)
	TTL() time.Duration
}

// HealthCheck reports whether a dependency, typically the cache backend, is usable.
type HealthCheck func(ctx context.Context) error

// DefaultActivityDays is the activity window when neither since nor days is given.
const DefaultActivityDays = 365

// Server routes HTTP requests to a [Service].
type Server struct {
	svc     Service
	logger  *log.Logger
	origins []string
	health  HealthCheck
	now     func() time.Time
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCORSOrigin sets the allowed origins for /api routes, comma-separated.
// "*" allows any origin.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) {
		var origins []string
		for _, o := range strings.Split(origin, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithHealthCheck sets the check run by /healthz.
func WithHealthCheck(h HealthCheck) Option {
	return func(s *Server) { s.health = h }
}

// WithClock sets the time source used to resolve activity windows.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Server.
func New(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:     svc,
		logger:  log.Default(),
		origins: []string{"*"},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no such endpoint", Code: "NOT_FOUND"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed", Code: "INVALID_INPUT"})
	})

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", httputil.HeaderRequestID},
			ExposedHeaders: []string{httputil.HeaderCacheStatus, httputil.HeaderRequestID},
			MaxAge:         300,
		}))
		r.Get("/repos", s.handleRepos)
		r.Get("/commits", s.handleCommits)
		r.Get("/progress-md", s.handleDocument(aggregator.DocumentProgress))
		r.Get("/case-study", s.handleDocument(aggregator.DocumentCaseStudy))
		r.Get("/activity", s.handleActivity)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.logger.Warn("health check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
