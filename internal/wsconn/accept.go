package wsconn

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/session"
)

// AllowList enforces the exhaustive, configured set of accepted origin
// values. Membership is checked unconditionally on every connection.
type AllowList struct {
	origins map[string]bool
}

// NewAllowList builds an AllowList from the configured allowedOrigins
// (plus any customOrigins already merged in by the config layer).
func NewAllowList(origins []string) *AllowList {
	set := make(map[string]bool, len(origins))
	for _, o := range origins {
		set[o] = true
	}
	return &AllowList{origins: set}
}

func (a *AllowList) Allowed(origin string) bool {
	return origin != "" && a.origins[origin]
}

// Accept upgrades r into a websocket connection, rejecting it outright
// (before the handshake completes) if the declared origin is absent or not
// in allowList — the check spec.md §4.8 says is unconditionally enforced.
func Accept(w http.ResponseWriter, r *http.Request, allowList *AllowList, sessions *session.Store, handler Handler, logger *logrus.Entry) (*Connection, error) {
	origin := r.Header.Get("Origin")
	if !allowList.Allowed(origin) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return nil, errOriginNotAllowed
	}

	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	return New(conn, sessions, handler, logger), nil
}

type originError struct{ message string }

func (e *originError) Error() string { return e.message }

var errOriginNotAllowed = &originError{message: "wsconn: origin not allowed"}
