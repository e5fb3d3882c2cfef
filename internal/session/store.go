// Package session implements SessionStore: bearer-token issuance and
// rotation, per-session rate limiting, and replay-resistant command
// admission.
package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/auditlog"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/cryptoutil"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/pairing"
)

const (
	maxRefreshThreshold = 15 * time.Minute
	replayHistoryCap    = 100
	secretSize          = 64
)

// ErrSessionNotFound is returned when a token or id does not resolve to a
// live session.
var ErrSessionNotFound = errors.New("session: not found")

// RejectReason enumerates why AdmitCommand refused a command.
type RejectReason string

const (
	RejectRateLimited RejectReason = "RATE_LIMIT_EXCEEDED"
	RejectReplay      RejectReason = "REPLAY_DETECTED"
)

// Decision is the outcome of AdmitCommand.
type Decision struct {
	Admitted          bool
	Reason            RejectReason
	RetryAfterSeconds int
}

// Claims is the JWT payload carried by every bearer token.
type Claims struct {
	SessionID string `json:"sessionId"`
	AppName   string `json:"appName"`
	AppURL    string `json:"appUrl"`
	jwt.RegisteredClaims
}

// Session is a live, authenticated pairing between a client app and this
// bridge.
type Session struct {
	ID      string
	AppName string
	AppURL  string

	ClientPublicKey []byte

	mu sync.Mutex

	token          string
	tokenIssuedAt  time.Time
	createdAt      time.Time
	lastActivity   time.Time
	expiresAt      time.Time

	limiter *penaltyLimiter

	executedFingerprints map[string]struct{}
	fingerprintHistory   []string

	commandCount int
}

// TokenString returns the session's current bearer token under lock.
func (s *Session) TokenString() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// ExpiresAt returns the session's current sliding expiry under lock.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// CreatedAt returns the session's creation time.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// LastActivity returns the session's last-refreshed-at time under lock.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Store is the process-wide registry of live sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	signingSecret []byte

	maxCommandsPerMinute int
	sessionTTL           time.Duration
	refreshThreshold     time.Duration

	now    func() time.Time
	audit  *auditlog.Logger
	logger *logrus.Entry
}

// New creates an empty session store with a fresh per-process signing
// secret. The secret is never persisted; restarting the process invalidates
// every outstanding token, which is intentional. sessionTimeout is the
// configured sliding-window TTL (config.Security.SessionTimeout); the token
// refresh threshold is derived from it as min(sessionTimeout/2, 15 minutes)
// per spec.md §3/§4.3.
func New(maxCommandsPerMinute int, sessionTimeout time.Duration, audit *auditlog.Logger, logger *logrus.Entry) (*Store, error) {
	secret := make([]byte, secretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("session: generate signing secret: %w", err)
	}
	if sessionTimeout <= 0 {
		sessionTimeout = time.Hour
	}
	refreshThreshold := sessionTimeout / 2
	if refreshThreshold > maxRefreshThreshold {
		refreshThreshold = maxRefreshThreshold
	}
	return &Store{
		sessions:             make(map[string]*Session),
		signingSecret:        secret,
		maxCommandsPerMinute: maxCommandsPerMinute,
		sessionTTL:           sessionTimeout,
		refreshThreshold:     refreshThreshold,
		now:                  time.Now,
		audit:                audit,
		logger:               logger,
	}, nil
}

// Create allocates a fresh session for a successfully redeemed pairing code.
func (st *Store) Create(redemption *pairing.Redemption) (*Session, error) {
	now := st.now()
	id := uuid.New().String()

	sess := &Session{
		ID:                   id,
		AppName:              redemption.AppName,
		AppURL:               redemption.AppURL,
		ClientPublicKey:      redemption.ClientPublicKey,
		createdAt:            now,
		lastActivity:         now,
		expiresAt:            now.Add(st.sessionTTL),
		limiter:              newPenaltyLimiter(st.maxCommandsPerMinute),
		executedFingerprints: make(map[string]struct{}),
	}

	token, err := st.mintToken(sess, now)
	if err != nil {
		return nil, err
	}
	sess.token = token
	sess.tokenIssuedAt = now

	st.mu.Lock()
	st.sessions[id] = sess
	st.mu.Unlock()

	st.auditEvent("session_created", logrus.Fields{
		"sessionId": id,
		"appName":   redemption.AppName,
		"appUrl":    redemption.AppURL,
	})

	return sess, nil
}

// ResolveByToken validates the token and, on success, slides the session's
// expiry and rotates the token if it has crossed refreshThreshold. The
// returned Session always carries the latest token string; callers MUST
// relay TokenString() back to the client on every response path.
func (st *Store) ResolveByToken(token string) (*Session, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("session: unexpected signing method %v", t.Header["alg"])
		}
		return st.signingSecret, nil
	})
	if err != nil {
		return nil, ErrSessionNotFound
	}

	st.mu.RLock()
	sess, ok := st.sessions[claims.SessionID]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	now := st.now()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.token != token {
		return nil, ErrSessionNotFound
	}
	if now.After(sess.expiresAt) {
		return nil, ErrSessionNotFound
	}

	sess.lastActivity = now
	sess.expiresAt = now.Add(st.sessionTTL)

	if now.Sub(sess.tokenIssuedAt) >= st.refreshThreshold {
		newToken, err := st.mintToken(sess, now)
		if err == nil {
			sess.token = newToken
			sess.tokenIssuedAt = now
		}
	}

	return sess, nil
}

// AdmitCommand is the single atomic per-command decision described in
// spec.md §4.3: rate-limit check, then replay check, then admission.
func (st *Store) AdmitCommand(sess *Session, commandID string, payloadData any) Decision {
	now := st.now()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if ok, retryAfter := sess.limiter.admit(now); !ok {
		return Decision{Admitted: false, Reason: RejectRateLimited, RetryAfterSeconds: retryAfter}
	}

	fingerprint, err := computeFingerprint(commandID, payloadData)
	if err != nil {
		// Canonicalization failure on malformed payload data is treated as
		// a command that cannot be admitted; callers reject it upstream as
		// an invalid message before this path is ever reached in practice.
		return Decision{Admitted: false, Reason: RejectReplay}
	}

	if _, seen := sess.executedFingerprints[fingerprint]; seen {
		st.auditEvent("replay_attack_detected", logrus.Fields{
			"sessionId": sess.ID,
			"commandId": commandID,
		})
		return Decision{Admitted: false, Reason: RejectReplay}
	}

	// executedFingerprints is never pruned: replay detection must hold for
	// the lifetime of the session, not just its most recent commands.
	// fingerprintHistory is a separate, bounded slice kept only for
	// observability (e.g. recent-activity inspection).
	sess.executedFingerprints[fingerprint] = struct{}{}
	sess.fingerprintHistory = append(sess.fingerprintHistory, fingerprint)
	if len(sess.fingerprintHistory) > replayHistoryCap {
		sess.fingerprintHistory = sess.fingerprintHistory[1:]
	}
	sess.commandCount++

	return Decision{Admitted: true}
}

// Revoke removes a session and its replay cache.
// Revoke removes a session by id, reporting whether it existed.
func (st *Store) Revoke(sessionID string) bool {
	st.mu.Lock()
	_, existed := st.sessions[sessionID]
	delete(st.sessions, sessionID)
	st.mu.Unlock()

	if existed {
		st.auditEvent("session_revoked", logrus.Fields{"sessionId": sessionID})
	}
	return existed
}

// List returns a snapshot of every live session, for the control surface's
// GET /api/sessions.
func (st *Store) List() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*Session, 0, len(st.sessions))
	for _, sess := range st.sessions {
		out = append(out, sess)
	}
	return out
}

// EmergencyKill atomically drains every session.
func (st *Store) EmergencyKill(reason string) []string {
	st.mu.Lock()
	terminated := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		terminated = append(terminated, id)
		delete(st.sessions, id)
	}
	st.mu.Unlock()

	st.auditEvent("emergency_kill_switch", logrus.Fields{
		"reason":     reason,
		"terminated": terminated,
	})
	return terminated
}

// Sweep removes sessions whose expiresAt has passed and returns how many
// were evicted. Intended to run on a one-minute ticker.
func (st *Store) Sweep() int {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, sess := range st.sessions {
		sess.mu.Lock()
		expired := now.After(sess.expiresAt)
		sess.mu.Unlock()
		if expired {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

func (st *Store) mintToken(sess *Session, now time.Time) (string, error) {
	claims := &Claims{
		SessionID: sess.ID,
		AppName:   sess.AppName,
		AppURL:    sess.AppURL,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(st.sessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(st.signingSecret)
	if err != nil {
		return "", fmt.Errorf("session: sign token: %w", err)
	}
	return signed, nil
}

func (st *Store) auditEvent(event string, fields logrus.Fields) {
	if st.audit != nil {
		st.audit.Event(event, fields)
	}
}

func computeFingerprint(commandID string, payloadData any) (string, error) {
	canonical, err := cryptoutil.Canonicalize(normalizePayload(payloadData))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte(commandID), canonical...))
	return hex.EncodeToString(sum[:]), nil
}

// normalizePayload ensures a nil payload canonicalizes the same way an
// empty object would, matching the MessageCodec's "data or {}" rule.
func normalizePayload(payloadData any) any {
	if payloadData == nil {
		return map[string]any{}
	}
	return payloadData
}
