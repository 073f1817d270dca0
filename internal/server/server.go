package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"formrelay/internal/history"
	"formrelay/internal/presence"
	"formrelay/internal/ratelimit"
	"formrelay/internal/relay"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/remeh/sizedwaitgroup"
)

const (
	// HTTP server timeouts
	HTTPReadTimeout  = 10 * time.Second
	HTTPWriteTimeout = 15 * time.Second
	HTTPIdleTimeout  = 60 * time.Second

	// Request timeout for middleware
	RequestTimeout = 30 * time.Second

	// DefaultPingRateLimit is requests per minute per IP on /ping and /status
	DefaultPingRateLimit = 120

	// MaxAuditWriters bounds concurrent audit trail inserts
	MaxAuditWriters = 4
)

// Server wires the limiter, presence tracker and relay to HTTP
type Server struct {
	Limiter  *ratelimit.Limiter
	Presence *presence.Tracker
	Relay    *relay.Relay
	History  *history.History // nil disables the audit trail
	Logger   *slog.Logger

	// PingRateLimit is the per-IP flood guard on /ping and /status in
	// requests per minute. Zero disables it.
	PingRateLimit int

	auditWg      sizedwaitgroup.SizedWaitGroup
	auditPending sync.WaitGroup
	httpServer   *http.Server
}

// NewServer creates a new server instance
func NewServer(limiter *ratelimit.Limiter, tracker *presence.Tracker, rel *relay.Relay, hist *history.History, logger *slog.Logger) *Server {
	return &Server{
		Limiter:       limiter,
		Presence:      tracker,
		Relay:         rel,
		History:       hist,
		Logger:        logger,
		PingRateLimit: DefaultPingRateLimit,
		auditWg:       sizedwaitgroup.New(MaxAuditWriters),
	}
}

// Router creates and configures the HTTP router
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	// Logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				s.Logger.Info("http_request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()))
			}()

			next.ServeHTTP(ww, r)
		})
	})

	r.Post("/submit-form", s.HandleSubmitForm)
	r.Get("/health", s.HandleHealth)

	// Presence routes share a generous per-IP flood guard
	r.Group(func(r chi.Router) {
		if s.PingRateLimit > 0 {
			r.Use(NewRateLimitMiddleware(s.PingRateLimit, s.Logger))
		}
		r.Post("/ping", s.HandlePing)
		r.Get("/status/{pcName}", s.HandleStatus)
	})

	return r
}

// Start listens on addr and serves until Shutdown is called
func (s *Server) Start(addr string) error {
	s.Logger.Info("Starting server", "addr", addr)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: HTTPWriteTimeout,
		IdleTimeout:  HTTPIdleTimeout,
	}

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// WaitForAudits blocks until queued audit trail writes have finished.
func (s *Server) WaitForAudits() {
	s.auditPending.Wait()
}

// Shutdown stops accepting requests, drains in-flight ones and pending
// audit writes, then closes the audit database.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	s.WaitForAudits()

	if s.History != nil {
		if err := s.History.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
