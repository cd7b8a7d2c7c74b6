// Package health provides the HTTP liveness and readiness endpoints.
//
// Docker and Kubernetes use these endpoints to monitor the daemon. /healthz
// answers as long as the process serves HTTP. /readyz additionally requires
// the daemon to be marked ready and every registered dependency check (the
// bed file, the ffmpeg binary) to pass.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Check reports whether a dependency is usable. A nil error means healthy.
type Check func(ctx context.Context) error

// Server is a lightweight HTTP server that exposes /healthz and /readyz.
type Server struct {
	port   int
	ready  atomic.Bool
	server *http.Server

	mu     sync.RWMutex
	checks map[string]Check
}

// New creates a new health check server.
func New(port int) *Server {
	return &Server{port: port, checks: make(map[string]Check)}
}

// SetReady marks the daemon as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// AddCheck registers a named readiness check.
func (s *Server) AddCheck(name string, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler returns the probe multiplexer.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, readiness{Status: "ok"})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			writeJSON(w, http.StatusServiceUnavailable, readiness{Status: "not_ready"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		body := readiness{Status: "ok"}
		status := http.StatusOK
		s.mu.RLock()
		for name, check := range s.checks {
			if body.Checks == nil {
				body.Checks = make(map[string]string, len(s.checks))
			}
			if err := check(ctx); err != nil {
				body.Checks[name] = err.Error()
				body.Status = "not_ready"
				status = http.StatusServiceUnavailable
				continue
			}
			body.Checks[name] = "ok"
		}
		s.mu.RUnlock()

		writeJSON(w, status, body)
	})

	return mux
}

// ListenAndServe starts the health check HTTP server.
// It blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("health server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
