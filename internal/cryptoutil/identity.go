// Package cryptoutil implements the bridge's signing identity: RSA keypair
// persistence, PKCS#1 v1.5 signing/verification over canonical payloads, and
// cryptographic-quality random token generation.
package cryptoutil

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	keyBits         = 2048
	privateKeyMode  = 0o600
	publicKeyMode   = 0o600
	privateKeyBlock = "RSA PRIVATE KEY"
	publicKeyBlock  = "RSA PUBLIC KEY"
)

// ErrPrivateKeyWorldReadable is returned by InitIdentity when an existing
// private key file has permissions looser than owner-only.
var ErrPrivateKeyWorldReadable = errors.New("cryptoutil: private key file is world-readable, refusing to load")

// Identity is the bridge's persisted RSA-2048 signing keypair.
type Identity struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey

	publicPEM []byte
}

// InitIdentity loads the identity from privatePath/publicPath, generating
// and persisting a fresh 2048-bit keypair on first run. It fails fatally
// (returns an error, never silently generates a second key) if the private
// key file exists but is readable by anyone other than its owner.
func InitIdentity(privatePath, publicPath string) (*Identity, error) {
	info, err := os.Stat(privatePath)
	switch {
	case err == nil:
		if info.Mode().Perm()&0o077 != 0 {
			return nil, ErrPrivateKeyWorldReadable
		}
		return loadIdentity(privatePath, publicPath)
	case os.IsNotExist(err):
		return generateIdentity(privatePath, publicPath)
	default:
		return nil, fmt.Errorf("cryptoutil: stat private key: %w", err)
	}
}

func generateIdentity(privatePath, publicPath string) (*Identity, error) {
	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: generate keypair: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(privatePath), 0o700); err != nil {
		return nil, fmt.Errorf("cryptoutil: create key directory: %w", err)
	}

	privateDER := x509.MarshalPKCS1PrivateKey(key)
	privatePEM := pem.EncodeToMemory(&pem.Block{Type: privateKeyBlock, Bytes: privateDER})
	if err := os.WriteFile(privatePath, privatePEM, privateKeyMode); err != nil {
		return nil, fmt.Errorf("cryptoutil: write private key: %w", err)
	}

	publicDER := x509.MarshalPKCS1PublicKey(&key.PublicKey)
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: publicKeyBlock, Bytes: publicDER})
	if err := os.WriteFile(publicPath, publicPEM, publicKeyMode); err != nil {
		return nil, fmt.Errorf("cryptoutil: write public key: %w", err)
	}

	return &Identity{private: key, public: &key.PublicKey, publicPEM: publicPEM}, nil
}

func loadIdentity(privatePath, publicPath string) (*Identity, error) {
	privatePEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: read private key: %w", err)
	}
	block, _ := pem.Decode(privatePEM)
	if block == nil {
		return nil, fmt.Errorf("cryptoutil: decode private key PEM: no block found")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: parse private key: %w", err)
	}

	publicPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: read public key: %w", err)
	}

	return &Identity{private: key, public: &key.PublicKey, publicPEM: publicPEM}, nil
}

// PublicKeyPEM returns the PEM-encoded public key served during pairing.
func (id *Identity) PublicKeyPEM() []byte {
	return id.publicPEM
}

// Sign computes RSA-PKCS#1 v1.5 over SHA-256 of payload, base64-standard encoded.
func (id *Identity) Sign(payload []byte) (string, error) {
	return Sign(id.private, payload)
}

// Sign is the free function form, usable with any loaded private key (tests
// sign with a client-side key that never touches the Identity type).
func Sign(key *rsa.PrivateKey, payload []byte) (string, error) {
	digest := sha256.Sum256(payload)
	signature, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("cryptoutil: sign: %w", err)
	}
	return base64.StdEncoding.EncodeToString(signature), nil
}

// Verify checks an RSA-PKCS#1 v1.5/SHA-256 signature against a PEM-encoded
// RSA public key. It never logs the signature bytes.
func Verify(payload []byte, signatureB64 string, publicKeyPEM []byte) bool {
	key, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return false
	}
	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(payload)
	return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], signature) == nil
}

// ParsePublicKey decodes a PEM-encoded RSA public key in either PKCS#1 or
// PKIX form — clients may present either depending on how their keypair was
// generated.
func ParsePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("cryptoutil: no PEM block found")
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	generic, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: parse public key: %w", err)
	}
	key, ok := generic.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("cryptoutil: public key is not RSA")
	}
	return key, nil
}
