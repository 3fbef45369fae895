// Package http exposes the dashboard JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"microcompta/internal/services"
)

// mutationLimitPerMinute caps write requests per client IP.
const mutationLimitPerMinute = 60

type Server struct {
	http.Server
	transactions *services.TransactionService
	dashboard    *services.DashboardService
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer wires the API routes and returns a ready-to-run server.
func NewServer(addr string, tx *services.TransactionService, dash *services.DashboardService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		transactions: tx,
		dashboard:    dash,
		rateLimiter:  newRateLimiter(mutationLimitPerMinute),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/dashboard", s.withMiddleware(s.requireUser(s.handleDashboard)))

	mux.HandleFunc("GET /api/transactions", s.withMiddleware(s.requireUser(s.handleListTransactions)))
	mux.HandleFunc("POST /api/transactions", s.withMiddleware(s.requireUser(s.handleCreateTransaction)))
	mux.HandleFunc("GET /api/transactions/{id}", s.withMiddleware(s.requireUser(s.handleGetTransaction)))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withMiddleware(s.requireUser(s.handleUpdateTransaction)))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withMiddleware(s.requireUser(s.handleDeleteTransaction)))
	mux.HandleFunc("POST /api/transactions/bulk-delete", s.withMiddleware(s.requireUser(s.handleBulkDelete)))

	mux.HandleFunc("GET /api/settings", s.withMiddleware(s.requireUser(s.handleGetSettings)))
	mux.HandleFunc("PUT /api/settings", s.withMiddleware(s.requireUser(s.handleSaveSettings)))

	mux.HandleFunc("GET /api/vat/simulation", s.withMiddleware(s.requireUser(s.handleVatSimulation)))

	mux.HandleFunc("GET /api/export", s.withMiddleware(s.requireUser(s.handleExport)))

	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withMiddleware adds security headers, rate limiting on mutations, and
// request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// userHandler is a handler that has already resolved the calling user.
type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// requireUser resolves the calling user from the X-User-ID header. There
// is no authentication layer here; the reverse proxy in front owns that.
func (s *Server) requireUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			writeError(w, http.StatusBadRequest, "missing X-User-ID header")
			return
		}
		next(w, r, userID)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
