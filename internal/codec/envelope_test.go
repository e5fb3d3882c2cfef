package codec

import (
	"testing"
	"time"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/bridgeerr"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestValidateRejectsMissingIDOrType(t *testing.T) {
	env := &Envelope{Timestamp: time.Now().UTC().Format(time.RFC3339)}
	if err := Validate(env, DefaultOptions(), time.Now); err == nil || err.Code != bridgeerr.CodeInvalidMessageFormat {
		t.Fatalf("expected INVALID_MESSAGE_FORMAT, got %v", err)
	}
}

func TestValidateRejectsUnrecognizedType(t *testing.T) {
	env := &Envelope{ID: "1", Type: "not-a-real-type", Timestamp: time.Now().UTC().Format(time.RFC3339)}
	if err := Validate(env, DefaultOptions(), time.Now); err == nil || err.Code != bridgeerr.CodeInvalidMessageFormat {
		t.Fatalf("expected INVALID_MESSAGE_FORMAT, got %v", err)
	}
}

func TestValidateRejectsExpiredTimestamp(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	env := &Envelope{
		ID:        "1",
		Type:      "health-check",
		Timestamp: now.Add(-time.Minute).Format(time.RFC3339),
	}
	err := Validate(env, DefaultOptions(), fixedNow(now))
	if err == nil || err.Code != bridgeerr.CodeCommandExpired {
		t.Fatalf("expected COMMAND_EXPIRED, got %v", err)
	}
}

func TestValidateRejectsFutureTimestamp(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	env := &Envelope{
		ID:        "1",
		Type:      "health-check",
		Timestamp: now.Add(time.Minute).Format(time.RFC3339),
	}
	err := Validate(env, DefaultOptions(), fixedNow(now))
	if err == nil || err.Code != bridgeerr.CodeCommandFromFuture {
		t.Fatalf("expected COMMAND_FROM_FUTURE, got %v", err)
	}
}

func TestValidateRequiresSignatureExceptHealthCheck(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	env := &Envelope{ID: "1", Type: "git-status", Timestamp: now.Format(time.RFC3339)}
	err := Validate(env, DefaultOptions(), fixedNow(now))
	if err == nil || err.Code != bridgeerr.CodeMissingSignature {
		t.Fatalf("expected MISSING_SIGNATURE, got %v", err)
	}

	healthCheck := &Envelope{ID: "2", Type: "health-check", Timestamp: now.Format(time.RFC3339)}
	if err := Validate(healthCheck, DefaultOptions(), fixedNow(now)); err != nil {
		t.Fatalf("expected health-check without signature to validate, got %v", err)
	}
}

func TestCanonicalSignedPayloadIsOrderIndependent(t *testing.T) {
	envA := &Envelope{
		Type:      "git-status",
		Timestamp: "2026-08-03T12:00:00Z",
		Data:      map[string]any{"workdir": "/tmp/x", "verbose": true},
	}
	envB := &Envelope{
		Type:      "git-status",
		Timestamp: "2026-08-03T12:00:00Z",
		Data:      map[string]any{"verbose": true, "workdir": "/tmp/x"},
	}

	payloadA, err := CanonicalSignedPayload(envA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payloadB, err := CanonicalSignedPayload(envB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payloadA) != string(payloadB) {
		t.Errorf("expected identical canonical payloads, got %q vs %q", payloadA, payloadB)
	}
}

type fakeKeySource struct {
	byToken      map[string][]byte
	connectionOK []byte
}

func (f fakeKeySource) PublicKeyForToken(token string) ([]byte, bool) {
	key, ok := f.byToken[token]
	return key, ok
}

func (f fakeKeySource) PublicKeyForConnection() ([]byte, bool) {
	if f.connectionOK == nil {
		return nil, false
	}
	return f.connectionOK, true
}

func TestSelectSigningKeyForPair(t *testing.T) {
	env := &Envelope{ID: "1", Type: "pair", Data: map[string]any{"clientPublicKey": "PEM-DATA"}}
	key, err := SelectSigningKey(env, fakeKeySource{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(key) != "PEM-DATA" {
		t.Errorf("expected PEM-DATA, got %q", key)
	}
}

func TestSelectSigningKeyForAuthenticate(t *testing.T) {
	src := fakeKeySource{byToken: map[string][]byte{"tok-1": []byte("session-key")}}
	env := &Envelope{ID: "1", Type: "authenticate", Data: map[string]any{"token": "tok-1"}}
	key, err := SelectSigningKey(env, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(key) != "session-key" {
		t.Errorf("expected session-key, got %q", key)
	}
}

func TestSelectSigningKeyForOtherTypeUsesConnectionSession(t *testing.T) {
	src := fakeKeySource{connectionOK: []byte("conn-key")}
	env := &Envelope{ID: "1", Type: "git-status", Data: map[string]any{}}
	key, err := SelectSigningKey(env, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(key) != "conn-key" {
		t.Errorf("expected conn-key, got %q", key)
	}
}

func TestSelectSigningKeyRejectsUnauthenticatedConnection(t *testing.T) {
	env := &Envelope{ID: "1", Type: "git-status", Data: map[string]any{}}
	if _, err := SelectSigningKey(env, fakeKeySource{}); err == nil || err.Code != bridgeerr.CodeNotAuthenticated {
		t.Fatalf("expected NOT_AUTHENTICATED, got %v", err)
	}
}
