// Package api exposes the agent over HTTP: health, tool listing, chat,
// conversation history, the audit trail, scheduler jobs, and a
// WebSocket chat channel.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sigitp-git/core-network-devops-agent/internal/agent"
	"github.com/sigitp-git/core-network-devops-agent/internal/audit"
	"github.com/sigitp-git/core-network-devops-agent/internal/config"
	"github.com/sigitp-git/core-network-devops-agent/internal/memory"
	"github.com/sigitp-git/core-network-devops-agent/internal/scheduler"
	"github.com/sigitp-git/core-network-devops-agent/internal/security"
	"github.com/sigitp-git/core-network-devops-agent/internal/tool"
)

// ChatAgent is the agent surface the server needs.
type ChatAgent interface {
	Process(ctx context.Context, input string) (*agent.Response, error)
	UpdateContext(patch map[string]any)
	HealthCheck(ctx context.Context) map[string]any
}

// AuditReader reads the tool invocation trail.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]audit.Invocation, error)
	CountByTool(ctx context.Context) (map[string]int64, error)
}

// Server is the HTTP API server.
type Server struct {
	cfg        config.ServerConfig
	agent      ChatAgent
	registry   *tool.Registry
	memory     *memory.Conversation
	audits     AuditReader
	sched      *scheduler.Scheduler
	logger     *slog.Logger
	httpServer *http.Server
	jwtSecret  []byte
	started    time.Time
}

// Option customizes the server.
type Option func(*Server)

// WithAudit attaches the audit trail reader.
func WithAudit(r AuditReader) Option {
	return func(s *Server) { s.audits = r }
}

// WithScheduler exposes scheduler jobs over the API.
func WithScheduler(sched *scheduler.Scheduler) Option {
	return func(s *Server) { s.sched = sched }
}

// NewServer creates the API server. Authentication is enabled when the
// config says so and a secret is present.
func NewServer(cfg config.ServerConfig, chatAgent ChatAgent, registry *tool.Registry, mem *memory.Conversation, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		agent:    chatAgent,
		registry: registry,
		memory:   mem,
		logger:   logger.With("component", "api"),
	}
	if cfg.AuthEnabled && cfg.JWTSecret != "" {
		s.jwtSecret = []byte(cfg.JWTSecret)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the full route tree. Exposed for httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Liveness stays unauthenticated.
	mux.HandleFunc("/health", s.handleHealth)

	api := http.NewServeMux()
	api.HandleFunc("/api/tools", s.handleTools)
	api.Handle("/api/chat", s.operatorOnly(http.HandlerFunc(s.handleChat)))
	api.HandleFunc("/api/history", s.handleHistory)
	api.HandleFunc("/api/audit", s.handleAudit)
	api.HandleFunc("/api/jobs", s.handleJobs)
	api.Handle("/api/jobs/", s.operatorOnly(http.HandlerFunc(s.handleJobRun)))
	mux.Handle("/api/", security.AuthMiddleware(s.jwtSecret)(api))

	mux.HandleFunc("/ws/chat", s.handleChatWS)

	return s.corsMiddleware(s.loggingMiddleware(mux))
}

// operatorOnly gates a whole route behind the operator role. With auth
// disabled it passes through.
func (s *Server) operatorOnly(next http.Handler) http.Handler {
	if s.jwtSecret == nil {
		return next
	}
	return security.RequireRole(security.RoleOperator, next)
}

// Start runs the server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.started = time.Now()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "addr", s.httpServer.Addr, "auth", s.jwtSecret != nil)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// corsMiddleware adds CORS headers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// respondJSON writes a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
