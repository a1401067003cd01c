package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Mindburn-Labs/caprouter/pkg/planner"
	"github.com/Mindburn-Labs/caprouter/pkg/registry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// server holds the wired collaborators and mounts the reference HTTP
// surface. The decision pipeline itself lives entirely in pkg/planner;
// this type only does request parsing, response shaping, and logging.
type server struct {
	registry  *registry.Loader
	planner   *planner.Planner
	metrics   metricsHandler
	logger    *zap.Logger
	reloadLim *rate.Limiter
}

type metricsHandler interface {
	Handler() http.Handler
}

func newServer(reg *registry.Loader, pl *planner.Planner, m metricsHandler, logger *zap.Logger) *server {
	return &server{
		registry: reg,
		planner:  pl,
		metrics:  m,
		logger:   logger,
		// Reload storms (rapid repeated /admin/reload calls) are throttled
		// to one every 500ms with a small burst, rather than rebuilding
		// the registry snapshot on every request.
		reloadLim: rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/tools", s.handleTools)
	mux.HandleFunc("/tools/validate", s.handleValidate)
	mux.HandleFunc("/plan", s.handlePlan)
	mux.HandleFunc("/trace/", s.handleTrace)
	mux.HandleFunc("/admin/reload", s.handleReload)
	mux.Handle("/metrics", s.metrics.Handler())
	return s.withAccessLog(mux)
}

func (s *server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("latency", time.Since(start)),
		)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *server) handleTools(w http.ResponseWriter, r *http.Request) {
	snap := s.registry.GetRegistry()
	writeJSON(w, http.StatusOK, map[string]any{
		"tools":     snap.Tools,
		"updatedAt": snap.UpdatedAt,
	})
}

func (s *server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "POST required"})
		return
	}
	var raw any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	if _, err := validateDocument(raw); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"valid": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

func (s *server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "POST required"})
		return
	}

	var req struct {
		Tenant     *string        `json:"tenant,omitempty"`
		Capability string         `json:"capability"`
		Input      map[string]any `json:"input,omitempty"`
		TimeoutMs  int64          `json:"timeout_ms,omitempty"`
		Execute    *bool          `json:"execute,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	result := s.planner.Plan(r.Context(), planner.Context{
		Tenant:     req.Tenant,
		Capability: req.Capability,
		Input:      req.Input,
		TimeoutMs:  req.TimeoutMs,
		Execute:    req.Execute,
	})

	status := http.StatusOK
	if result.Denied != nil {
		status = http.StatusForbidden
	} else if result.Code == planner.CodeInputInvalid {
		status = http.StatusBadRequest
	} else if result.Code == planner.CodeNoCandidates {
		status = http.StatusNotFound
	}
	writeJSON(w, status, result)
}

func (s *server) handleTrace(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/trace/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "trace id required"})
		return
	}
	trace, ok := s.planner.Trace(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "trace not found or expired"})
		return
	}
	writeJSON(w, http.StatusOK, trace)
}

func (s *server) handleReload(w http.ResponseWriter, r *http.Request) {
	if !s.reloadLim.Allow() {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "reload rate limit exceeded"})
		return
	}
	if err := s.registry.Reload(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reloaded"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
