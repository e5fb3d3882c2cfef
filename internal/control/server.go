// Package control implements the bridge's small HTTP admin surface: health,
// pairing issuance/verification, agent/session enumeration, and the git
// status read used by the desktop app before a message-channel connection
// exists.
package control

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/bootstrap"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/wsconn"
)

// Server holds the components the HTTP handlers read from.
type Server struct {
	bridge    *bootstrap.Bridge
	allowList *wsconn.AllowList
	logger    *logrus.Entry
	version   string
	startedAt time.Time
}

// New builds the admin HTTP surface. allowList is checked on every /api
// endpoint, read-only ones included; GET /health is not checked.
func New(bridge *bootstrap.Bridge, allowList *wsconn.AllowList, version string, logger *logrus.Entry) *Server {
	return &Server{bridge: bridge, allowList: allowList, logger: logger, version: version, startedAt: time.Now()}
}

// Mux builds the routed http.Handler for this server.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/pairing/generate", s.withOriginCheck(s.handlePairingGenerate))
	mux.HandleFunc("POST /api/pairing/verify", s.withOriginCheck(s.handlePairingVerify))
	mux.HandleFunc("GET /api/agents", s.withOriginCheck(s.handleAgents))
	mux.HandleFunc("GET /api/sessions", s.withOriginCheck(s.handleListSessions))
	mux.HandleFunc("DELETE /api/sessions/{id}", s.withOriginCheck(s.handleDeleteSession))
	mux.HandleFunc("GET /api/git/status", s.withOriginCheck(s.handleGitStatus))
	return mux
}

// withOriginCheck rejects with 403 any request whose Origin header is
// present and not in the allow-list. Unlike the message channel, a request
// with no Origin header (a non-browser client) is let through.
func (s *Server) withOriginCheck(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && !s.allowList.Allowed(origin) {
			writeError(w, http.StatusForbidden, "origin not allowed")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        s.version,
		"uptime":         time.Since(s.startedAt).Seconds(),
		"activeSessions": len(s.bridge.Sessions.List()),
	})
}

func decodeJSON[T any](r *http.Request) (T, error) {
	var payload T
	err := json.NewDecoder(r.Body).Decode(&payload)
	return payload, err
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
