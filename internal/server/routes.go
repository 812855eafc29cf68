package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bobmcallan/vire-leaderboard/internal/config"
	"github.com/bobmcallan/vire-leaderboard/internal/leaderboard"
	"github.com/bobmcallan/vire-leaderboard/internal/snapshot"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// MCP endpoint (JSON-RPC over HTTP)
	if s.mcp != nil {
		mux.Handle("/mcp", s.mcp)
	}

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	if s.source != nil {
		mux.HandleFunc("/api/leaderboard", s.handleLeaderboard)
	}

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, config.Info())
}

// handleLeaderboard returns the ranked latest snapshot.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	m, err := s.source.Latest()
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		writeError(w, http.StatusNotFound, "no snapshot available")
		return
	}
	if err != nil {
		s.requestLogger(r).Error().Err(err).Msg("failed to load latest snapshot")
		writeError(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}
	writeJSON(w, http.StatusOK, leaderboard.Build(m))
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "no such endpoint: "+r.URL.Path)
}

// requireMethod writes 405 unless r uses method. GET also admits HEAD.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}
