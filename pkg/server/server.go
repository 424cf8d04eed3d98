// Package server exposes repository analysis over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"stacksignal/pkg/analysis"
	"stacksignal/pkg/state"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const (
	maxAnalyzeBody   = 64 << 10
	maxReconcileBody = 8 << 20

	// Names are compared pairwise by edit distance during reconciliation
	maxReconcileName  = 256
	maxReconcileItems = 2000
	shutdownTimeout  = 15 * time.Second
)

// Server serves the analysis API
type Server struct {
	service *analysis.Service
	records *state.Store
	log     zerolog.Logger
	timeout time.Duration
	version string
	started time.Time
}

// Option configures a Server
type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithRecords enables the report endpoint backed by the analysis record store
func WithRecords(store *state.Store) Option {
	return func(s *Server) {
		s.records = store
	}
}

// WithTimeout bounds each request
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// New creates a server around an analysis service
func New(service *analysis.Service, opts ...Option) *Server {
	s := &Server{
		service: service,
		log:     zerolog.Nop(),
		timeout: 2 * time.Minute,
		version: "dev",
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the HTTP handler
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/patterns", s.handlePatterns)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/reconcile", s.handleReconcile)
		r.Get("/reports/{owner}/{repo}", s.handleReport)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Str("version", s.version).Msg("starting stacksignal API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info().Msg("shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}
