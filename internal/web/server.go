// Package web exposes the admin data core as a JSON API: resource CRUD,
// bulk imports, data-quality analysis, submission review, and the audit
// log. Authentication is enforced upstream; this layer only threads the
// caller's identity through to audit records.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/forkful/backoffice/internal/audit"
	"github.com/forkful/backoffice/internal/config"
	"github.com/forkful/backoffice/internal/quality"
	"github.com/forkful/backoffice/internal/resource"
	mw "github.com/forkful/backoffice/internal/web/middleware"
)

// Server is the HTTP front end for the admin data core.
type Server struct {
	cfg     *config.Config
	mgr     *resource.Manager
	quality *quality.Service
	audits  *audit.Recorder
	limiter *BulkLimiter
	router  *chi.Mux
	server  *http.Server
}

// NewServer wires the router, middleware, and handlers.
func NewServer(cfg *config.Config, mgr *resource.Manager, qual *quality.Service, audits *audit.Recorder) *Server {
	s := &Server{
		cfg:     cfg,
		mgr:     mgr,
		quality: qual,
		audits:  audits,
		limiter: NewBulkLimiter(cfg.Bulk.MaxConcurrent, cfg.Bulk.MaxWait),
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures the middleware chain for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealthz)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.Actor)

		// Bulk imports and change application run outside the request
		// timeout: each holds one transaction to completion and must not
		// be cancelled mid-flight.
		r.Group(func(r chi.Router) {
			r.Post("/resources/{type}/bulk", s.handleBulkAdd)
			r.Post("/resources/{type}/bulk/validate", s.handleBulkValidate)
			r.Post("/analysis/{type}/apply", s.handleApplyChanges)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

			r.Get("/resources", s.handleResourceTypes)
			r.Get("/resources/{type}", s.handleList)
			r.Post("/resources/{type}", s.handleCreate)
			r.Get("/resources/{type}/{id}", s.handleGet)
			r.Put("/resources/{type}/{id}", s.handleUpdate)
			r.Delete("/resources/{type}/{id}", s.handleDelete)
			r.Post("/resources/{type}/existing", s.handleCheckExisting)

			r.Get("/lookup/{type}", s.handleLookup)

			r.Get("/analysis/{type}", s.handleAnalyze)
			r.Post("/analysis/{type}/changes", s.handleChangesByIDs)
			r.Post("/analysis/{type}/reject", s.handleRejectChanges)

			r.Post("/submissions/{id}/approve", s.handleApproveSubmission)
			r.Post("/submissions/{id}/reject", s.handleRejectSubmission)

			r.Get("/audit-log", s.handleAuditLog)
			r.Get("/audit-log/{id}", s.handleAuditLogEntry)

			r.Post("/bulk/{batchId}/rollback", s.handleRollbackBatch)
			r.Get("/import-status", s.handleImportStatus)
		})
	})
}

// Start begins serving on the configured address. It blocks until the
// listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight ones to finish,
// then waits for bulk imports to drain.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.limiter.WaitForDrain(ctx)
}

// ImportStatus reports the bulk limiter's occupancy, used by shutdown to
// decide whether to log a drain wait.
func (s *Server) ImportStatus() LimiterStatus {
	return s.limiter.Status()
}

// Router returns the underlying chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders hardens responses. The API serves JSON only, so the
// browser-oriented headers just stop content sniffing and framing.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// rateLimiter is a token bucket per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // refill interval
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	go rl.cleanup()
	return rl
}

// cleanup drops visitors idle for more than two windows.
func (rl *rateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// allow consumes a token for the IP if one is available.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}

	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// middleware rejects requests over budget with 429 and a Retry-After.
// TrustedRealIP has already resolved RemoteAddr; forwarding headers are
// not consulted again here.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port when RemoteAddr still carries one.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// writeError writes a bare JSON error. Handlers use it for request-shape
// problems that never reach the service layer; service failures go through
// respondError so they pick up a support code.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, message)
}

// writeJSON encodes v with a 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v with the given status. Encoding failures are
// logged; the header is already gone by then.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}
