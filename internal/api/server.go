// Package api exposes the HTTP interface for search and crawl statistics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/webdex/webdex/internal/crawl"
	"github.com/webdex/webdex/internal/metrics"
	"github.com/webdex/webdex/internal/rank"
)

// IDGenerator creates request correlation IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Server wires HTTP handlers to the ranking engine and registry.
type Server struct {
	router   chi.Router
	engine   *rank.Engine
	registry crawl.DomainRegistry
	index    crawl.SiteIndex
	idGen    IDGenerator
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	engine *rank.Engine,
	registry crawl.DomainRegistry,
	index crawl.SiteIndex,
	idGen IDGenerator,
	logger *zap.Logger,
) *Server {
	s := &Server{
		engine:   engine,
		registry: registry,
		index:    index,
		idGen:    idGen,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/", s.root)
	r.Get("/search", s.search)
	r.Get("/stats", s.stats)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.registry.CountByStatus(r.Context()); err != nil {
		writeError(s.logger, w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"service": "webdex"})
}

// search serves GET /search?q=...&page=N. Empty and whitespace-only
// queries redirect home instead of reaching the engine.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	query := r.URL.Query().Get("q")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	result, err := s.engine.Search(r.Context(), query, page)
	if err != nil {
		if errors.Is(err, rank.ErrEmptyQuery) {
			metrics.ObserveSearch("empty", time.Since(start))
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		metrics.ObserveSearch("error", time.Since(start))
		s.logger.Error("search failed", zap.String("query", query), zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "search failed")
		return
	}

	metrics.ObserveSearch("ok", time.Since(start))
	writeJSON(s.logger, w, http.StatusOK, result)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.registry.CountByStatus(r.Context())
	if err != nil {
		s.logger.Error("domain counts failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	pages, err := s.index.CountDocuments(r.Context())
	if err != nil {
		s.logger.Error("document count failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "stats unavailable")
		return
	}

	writeJSON(s.logger, w, http.StatusOK, crawl.Stats{
		DomainsPending:  counts[crawl.DomainStatusPending],
		DomainsComplete: counts[crawl.DomainStatusComplete],
		PagesIndexed:    pages,
	})
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID, err := s.idGen.NewID()
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(s.logger, w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(logger *zap.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(logger, w, status, map[string]string{"error": msg})
}
