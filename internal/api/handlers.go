package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sigitp-git/core-network-devops-agent/internal/security"
)

// handleHealth reports agent and tool backend health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	report := s.agent.HealthCheck(r.Context())
	if !s.started.IsZero() {
		report["uptime_seconds"] = time.Since(s.started).Seconds()
	}

	status := http.StatusOK
	if report["status"] == "degraded" {
		status = http.StatusServiceUnavailable
	}
	s.respondJSON(w, status, report)
}

// handleTools lists registered tools with their input schemas.
func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"tools": s.registry.Schemas(),
		"count": s.registry.Len(),
	})
}

// ChatRequest is the /api/chat request body.
type ChatRequest struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// handleChat runs one message through the agent.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	if len(req.Context) > 0 {
		s.agent.UpdateContext(req.Context)
	}

	resp, err := s.agent.Process(r.Context(), req.Message)
	if err != nil {
		s.logger.Error("chat processing failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "processing failed")
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleHistory reads or clears the conversation.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		n := 20
		if raw := r.URL.Query().Get("n"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				s.respondError(w, http.StatusBadRequest, "n must be a positive integer")
				return
			}
			n = parsed
		}
		msgs := s.memory.Recent(n)
		s.respondJSON(w, http.StatusOK, map[string]any{
			"messages": msgs,
			"count":    len(msgs),
			"total":    s.memory.Len(),
		})

	case http.MethodDelete:
		if !s.requireRole(w, r, security.RoleOperator) {
			return
		}
		s.memory.Clear()
		s.respondJSON(w, http.StatusOK, map[string]string{"message": "conversation cleared"})

	default:
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleAudit returns recent tool invocations and per-tool counts.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.audits == nil {
		s.respondError(w, http.StatusNotFound, "audit trail disabled")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	invocations, err := s.audits.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("audit read failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "audit read failed")
		return
	}
	counts, err := s.audits.CountByTool(r.Context())
	if err != nil {
		s.logger.Error("audit count failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "audit read failed")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"invocations": invocations,
		"counts":      counts,
	})
}

// handleJobs lists scheduler jobs.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.sched == nil {
		s.respondError(w, http.StatusNotFound, "scheduler disabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"jobs":  s.sched.ListJobs(),
		"stats": s.sched.Stats(),
	})
}

// handleJobRun triggers a job: POST /api/jobs/{id}/run.
func (s *Server) handleJobRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.sched == nil {
		s.respondError(w, http.StatusNotFound, "scheduler disabled")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "run" || parts[0] == "" {
		s.respondError(w, http.StatusBadRequest, "expected /api/jobs/{id}/run")
		return
	}

	if err := s.sched.RunJobNow(parts[0]); err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "job triggered", "job": parts[0]})
}

// requireRole enforces a minimum role when authentication is on. With
// auth disabled every caller passes.
func (s *Server) requireRole(w http.ResponseWriter, r *http.Request, required string) bool {
	if s.jwtSecret == nil {
		return true
	}
	claims, err := security.GetClaims(r)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "missing authorization token")
		return false
	}
	if !security.Allowed(claims.Role, required) {
		s.respondError(w, http.StatusForbidden, "insufficient role")
		return false
	}
	return true
}
