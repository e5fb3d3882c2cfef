// Package codec implements MessageCodec: envelope validation, canonical
// signed-payload construction, and signature verification with
// per-message-type key selection.
package codec

import (
	"time"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/bridgeerr"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/cryptoutil"
)

// Envelope is the wire shape of every message, client→bridge and
// bridge→client alike.
type Envelope struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp string         `json:"timestamp"`
	Nonce     string         `json:"nonce,omitempty"`
	Signature string         `json:"signature,omitempty"`
}

// recognizedTypes is the full client→bridge message type set from spec.md §6.
var recognizedTypes = map[string]bool{
	"pair":                 true,
	"authenticate":         true,
	"init-session":         true,
	"start-agent-session":  true,
	"create-worktree":      true,
	"git-status":           true,
	"git-command":          true,
	"execute-prompt":       true,
	"approve-plan":         true,
	"reject-plan":          true,
	"abort-execution":      true,
	"agent-interaction":    true,
	"agent-feedback":       true,
	"generate-pr":          true,
	"cleanup-worktree":     true,
	"health-check":         true,
	"emergency-kill":       true,
}

// Options configures the freshness window checked by Validate.
type Options struct {
	MaxAge              time.Duration
	ClockSkewTolerance  time.Duration
}

// DefaultOptions matches spec.md §4.4's stated defaults.
func DefaultOptions() Options {
	return Options{MaxAge: 30 * time.Second, ClockSkewTolerance: 5 * time.Second}
}

// Validate runs the structural and freshness checks from spec.md §4.4 steps
// 1-4, given a clock function so callers can test deterministically.
func Validate(env *Envelope, opts Options, now func() time.Time) *bridgeerr.Error {
	if env.ID == "" || env.Type == "" {
		return bridgeerr.New(bridgeerr.CodeInvalidMessageFormat, "id and type are required")
	}
	if !recognizedTypes[env.Type] {
		return bridgeerr.New(bridgeerr.CodeInvalidMessageFormat, "unrecognized message type").WithID(env.ID)
	}

	ts, err := time.Parse(time.RFC3339, env.Timestamp)
	if err != nil {
		return bridgeerr.New(bridgeerr.CodeInvalidMessageFormat, "timestamp is not parseable").WithID(env.ID)
	}

	current := now()
	if current.Sub(ts) > opts.MaxAge {
		return bridgeerr.New(bridgeerr.CodeCommandExpired, "command timestamp too old").WithID(env.ID)
	}
	if ts.Sub(current) > opts.ClockSkewTolerance {
		return bridgeerr.New(bridgeerr.CodeCommandFromFuture, "command timestamp is in the future").WithID(env.ID)
	}

	if env.Type != "health-check" && env.Signature == "" {
		return bridgeerr.New(bridgeerr.CodeMissingSignature, "signature is required for this message type").WithID(env.ID)
	}

	return nil
}

// CanonicalSignedPayload builds the exact byte sequence that a message's
// signature covers, per spec.md §4.4.
func CanonicalSignedPayload(env *Envelope) ([]byte, error) {
	data := env.Data
	if data == nil {
		data = map[string]any{}
	}
	var nonce any
	if env.Nonce != "" {
		nonce = env.Nonce
	}
	return cryptoutil.Canonicalize(map[string]any{
		"type":      env.Type,
		"timestamp": env.Timestamp,
		"nonce":     nonce,
		"data":      data,
	})
}

// VerifySignature checks env.Signature against the canonical payload using
// the given public key. Verification failures (including a missing
// signature on a type that requires one) are reported through the caller's
// own CODE selection; this function only answers true/false.
func VerifySignature(env *Envelope, publicKeyPEM []byte) bool {
	if env.Signature == "" {
		return false
	}
	payload, err := CanonicalSignedPayload(env)
	if err != nil {
		return false
	}
	return cryptoutil.Verify(payload, env.Signature, publicKeyPEM)
}

// ErrorEnvelope builds the {error, code, id} wire response for a rejected
// inbound envelope.
func ErrorEnvelope(bridgeErr *bridgeerr.Error) Envelope {
	env := bridgeErr.ToEnvelope()
	return Envelope{
		ID:   env.ID,
		Type: "error",
		Data: map[string]any{
			"error": env.Error,
			"code":  string(env.Code),
		},
	}
}
