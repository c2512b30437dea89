// Package signer produces and checks nonce-binding MACs.
//
// Secrets are injected and versioned so every instance of the service
// shares consistent verification material and keys can rotate without
// invalidating bindings signed under older versions.
package signer

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	id "calibra/pkg/domain"
)

// Secret is one version of the binding MAC key.
type Secret struct {
	Version string
	Key     []byte
}

// Provider supplies versioned signing secrets.
type Provider interface {
	// Active returns the secret new bindings are signed under.
	Active() (Secret, error)
	// ByVersion returns the secret a stored binding was signed under.
	ByVersion(version string) (Secret, error)
}

// StaticProvider serves secrets from configuration. Deployments with a
// secret manager implement Provider against it instead.
type StaticProvider struct {
	secrets       map[string][]byte
	activeVersion string
}

func NewStaticProvider(secrets map[string]string, activeVersion string) (*StaticProvider, error) {
	if _, ok := secrets[activeVersion]; !ok {
		return nil, fmt.Errorf("active secret version %q not present", activeVersion)
	}
	byVersion := make(map[string][]byte, len(secrets))
	for version, key := range secrets {
		if key == "" {
			return nil, fmt.Errorf("empty secret for version %q", version)
		}
		byVersion[version] = []byte(key)
	}
	return &StaticProvider{secrets: byVersion, activeVersion: activeVersion}, nil
}

func (p *StaticProvider) Active() (Secret, error) {
	return Secret{Version: p.activeVersion, Key: p.secrets[p.activeVersion]}, nil
}

func (p *StaticProvider) ByVersion(version string) (Secret, error) {
	key, ok := p.secrets[version]
	if !ok {
		return Secret{}, fmt.Errorf("unknown secret version %q", version)
	}
	return Secret{Version: version, Key: key}, nil
}

// Signer computes binding signatures.
type Signer struct {
	provider Provider
}

func New(provider Provider) *Signer {
	return &Signer{provider: provider}
}

// Sign MACs nonce||orgID||publicKey under the active secret and returns the
// hex signature plus the secret version it was produced with.
func (s *Signer) Sign(nonce id.Nonce, orgID id.OrgID, publicKey id.PublicKeyHex) (signature, version string, err error) {
	secret, err := s.provider.Active()
	if err != nil {
		return "", "", fmt.Errorf("load active secret: %w", err)
	}
	sig, err := mac(secret.Key, nonce, orgID, publicKey)
	if err != nil {
		return "", "", err
	}
	return sig, secret.Version, nil
}

// Verify recomputes the signature under the binding's secret version and
// compares in constant time to avoid timing leaks.
func (s *Signer) Verify(nonce id.Nonce, orgID id.OrgID, publicKey id.PublicKeyHex, signature, version string) (bool, error) {
	secret, err := s.provider.ByVersion(version)
	if err != nil {
		return false, fmt.Errorf("load secret version: %w", err)
	}
	expected, err := mac(secret.Key, nonce, orgID, publicKey)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1, nil
}

// mac is keyed BLAKE2b-256 over the concatenated binding fields.
func mac(key []byte, nonce id.Nonce, orgID id.OrgID, publicKey id.PublicKeyHex) (string, error) {
	h, err := blake2b.New256(key)
	if err != nil {
		return "", fmt.Errorf("init mac: %w", err)
	}
	h.Write([]byte(nonce))
	h.Write([]byte(orgID))
	h.Write([]byte(publicKey))
	return hex.EncodeToString(h.Sum(nil)), nil
}
