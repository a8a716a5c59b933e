// Package server exposes searches over HTTP for the hosted scrape service.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kvora49/Lead-finder-sub001/internal/engine/quota"
	"github.com/kvora49/Lead-finder-sub001/internal/engine/search"
	"github.com/kvora49/Lead-finder-sub001/internal/model"
)

// SecretHeader carries the shared secret on every /scrape call.
const SecretHeader = "X-Scrape-Secret"

// RequestIDHeader is set on every response.
const RequestIDHeader = "X-Request-Id"

// Searcher is the part of search.Service the server needs.
type Searcher interface {
	Search(ctx context.Context, req model.SearchRequest, opts search.Options) (*search.Response, error)
	ClearCache(ctx context.Context, keyword, location string) error
	Ping(ctx context.Context) error
	Provider() string
}

type Server struct {
	searcher   Searcher
	accountant quota.Accountant
	secret     string
	log        *zap.Logger
}

func New(searcher Searcher, accountant quota.Accountant, secret string, log *zap.Logger) *Server {
	if accountant == nil {
		accountant = quota.Nop
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		searcher:   searcher,
		accountant: accountant,
		secret:     secret,
		log:        log.Named("server"),
	}
}

// Handler returns the routed handler with request ids and access logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /scrape", s.requireSecret(s.handleScrape))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return s.withRequestID(mux)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", addr), zap.String("provider", s.searcher.Provider()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type ctxKey struct{}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(RequestIDHeader, id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))

		s.log.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
