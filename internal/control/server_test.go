package control

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/bootstrap"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/config"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/wsconn"
)

func newTestServer(t *testing.T) (*Server, *bootstrap.Bridge) {
	t.Helper()
	cfg := config.Default()
	logger := logrus.NewEntry(logrus.New())

	bridge, err := bootstrap.New(&cfg, t.TempDir(), logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	allowList := wsconn.NewAllowList([]string{"https://x.test"})
	return New(bridge, allowList, "test", logger), bridge
}

func TestHealthReportsStatusOK(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestPairingGenerateThenVerifyRoundTrips(t *testing.T) {
	s, _ := newTestServer(t)

	genBody := `{"appName":"X","appUrl":"https://x.test"}`
	genReq := httptest.NewRequest(http.MethodPost, "/api/pairing/generate", jsonBody(genBody))
	genReq.Header.Set("Origin", "https://x.test")
	genRec := httptest.NewRecorder()
	s.Mux().ServeHTTP(genRec, genReq)

	if genRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", genRec.Code, genRec.Body.String())
	}
	var genResp map[string]any
	if err := json.NewDecoder(genRec.Body).Decode(&genResp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	code, _ := genResp["code"].(string)
	if code == "" {
		t.Fatal("expected a non-empty pairing code")
	}

	verifyBody := `{"code":"` + code + `","clientPublicKey":"client-pub"}`
	verifyReq := httptest.NewRequest(http.MethodPost, "/api/pairing/verify", jsonBody(verifyBody))
	verifyReq.Header.Set("Origin", "https://x.test")
	verifyRec := httptest.NewRecorder()
	s.Mux().ServeHTTP(verifyRec, verifyReq)

	if verifyRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", verifyRec.Code, verifyRec.Body.String())
	}
	var verifyResp map[string]any
	if err := json.NewDecoder(verifyRec.Body).Decode(&verifyResp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verifyResp["token"] == "" || verifyResp["token"] == nil {
		t.Error("expected a non-empty token")
	}
}

func TestPairingGenerateRejectsMissingFields(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/pairing/generate", jsonBody(`{}`))
	req.Header.Set("Origin", "https://x.test")
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAPIEndpointRejectsDisallowedOrigin(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.Header.Set("Origin", "https://evil.test")
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestDeleteSessionReturns404ForUnknownID(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func jsonBody(body string) *strings.Reader {
	return strings.NewReader(body)
}
