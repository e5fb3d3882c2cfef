package control

import (
	"net/http"
	"time"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/pairing"
)

type pairingGenerateRequest struct {
	AppName string `json:"appName"`
	AppURL  string `json:"appUrl"`
}

func (s *Server) handlePairingGenerate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[pairingGenerateRequest](r)
	if err != nil || req.AppName == "" || req.AppURL == "" {
		writeError(w, http.StatusBadRequest, "appName and appUrl are required")
		return
	}

	code, err := s.bridge.Pairing.Issue(req.AppName, req.AppURL, s.bridge.Identity.PublicKeyPEM())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue pairing code")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"code":            code.Value,
		"expiresAt":       code.ExpiresAt.UTC().Format(time.RFC3339),
		"bridgePublicKey": string(s.bridge.Identity.PublicKeyPEM()),
	})
}

type pairingVerifyRequest struct {
	Code            string `json:"code"`
	ClientPublicKey string `json:"clientPublicKey"`
}

func (s *Server) handlePairingVerify(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[pairingVerifyRequest](r)
	if err != nil || req.Code == "" || req.ClientPublicKey == "" {
		writeError(w, http.StatusBadRequest, "code and clientPublicKey are required")
		return
	}

	redemption, err := s.bridge.Pairing.Redeem(req.Code, []byte(req.ClientPublicKey))
	if err != nil {
		if err == pairing.ErrInvalidOrExpired {
			writeError(w, http.StatusBadRequest, "invalid or expired code")
			return
		}
		writeError(w, http.StatusInternalServerError, "pairing redemption failed")
		return
	}

	sess, err := s.bridge.Sessions.Create(redemption)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session creation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":           sess.TokenString(),
		"sessionId":       sess.ID,
		"bridgePublicKey": string(s.bridge.Identity.PublicKeyPEM()),
		"expiresAt":       sess.ExpiresAt().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	var out []map[string]any
	for _, kind := range []string{"claude", "codex", "gemini"} {
		located, err := s.bridge.Supervisor.Locate(kind)
		if err != nil {
			continue
		}
		out = append(out, map[string]any{"name": kind, "version": located.Version, "path": located.Path})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.bridge.Sessions.List()
	out := make([]map[string]any, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, map[string]any{
			"id":           sess.ID,
			"appName":      sess.AppName,
			"createdAt":    sess.CreatedAt().UTC().Format(time.RFC3339),
			"lastActivity": sess.LastActivity().UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.bridge.Sessions.Revoke(id) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revoked": id})
}

func (s *Server) handleGitStatus(w http.ResponseWriter, r *http.Request) {
	workdir := r.URL.Query().Get("workdir")
	if workdir == "" {
		writeError(w, http.StatusBadRequest, "workdir query parameter is required")
		return
	}

	status, err := s.bridge.Adapter.Status(r.Context(), workdir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"branch":         status.Branch,
		"clean":          status.Clean,
		"modifiedFiles":  status.ModifiedFiles,
		"untrackedFiles": status.UntrackedFiles,
	})
}
