package cryptoutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
)

func exportPublicKeyPEM(key *rsa.PublicKey) ([]byte, error) {
	der := x509.MarshalPKCS1PublicKey(key)
	return pem.EncodeToMemory(&pem.Block{Type: publicKeyBlock, Bytes: der}), nil
}

func TestInitIdentityGeneratesThenLoads(t *testing.T) {
	dir := t.TempDir()
	privatePath := filepath.Join(dir, "private.pem")
	publicPath := filepath.Join(dir, "public.pem")

	first, err := InitIdentity(privatePath, publicPath)
	if err != nil {
		t.Fatalf("unexpected error generating identity: %v", err)
	}
	if len(first.PublicKeyPEM()) == 0 {
		t.Fatal("expected non-empty public key PEM")
	}

	second, err := InitIdentity(privatePath, publicPath)
	if err != nil {
		t.Fatalf("unexpected error loading identity: %v", err)
	}
	if string(first.PublicKeyPEM()) != string(second.PublicKeyPEM()) {
		t.Error("expected loaded identity to have the same public key as the generated one")
	}
}

func TestInitIdentityRejectsWorldReadableKey(t *testing.T) {
	dir := t.TempDir()
	privatePath := filepath.Join(dir, "private.pem")
	publicPath := filepath.Join(dir, "public.pem")

	if _, err := InitIdentity(privatePath, publicPath); err != nil {
		t.Fatalf("unexpected error generating identity: %v", err)
	}

	if err := os.Chmod(privatePath, 0o644); err != nil {
		t.Fatalf("failed to chmod private key: %v", err)
	}

	if _, err := InitIdentity(privatePath, publicPath); err != ErrPrivateKeyWorldReadable {
		t.Errorf("expected ErrPrivateKeyWorldReadable, got %v", err)
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("unexpected error generating key: %v", err)
	}
	payload := []byte(`{"type":"health-check"}`)

	signature, err := Sign(key, payload)
	if err != nil {
		t.Fatalf("unexpected error signing: %v", err)
	}

	publicPEM, err := exportPublicKeyPEM(&key.PublicKey)
	if err != nil {
		t.Fatalf("unexpected error exporting public key: %v", err)
	}

	if !Verify(payload, signature, publicPEM) {
		t.Error("expected signature to verify")
	}

	tampered := append([]byte{}, payload...)
	tampered[0] ^= 0xFF
	if Verify(tampered, signature, publicPEM) {
		t.Error("expected verification to fail for a tampered payload")
	}
}
