// Package domain defines shared domain primitives used across modules.
//
// Values are constructed via Parse* at trust boundaries to enforce format
// invariants; direct casting bypasses validation and is reserved for values
// already validated (store scans, generated IDs).
package domain

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// OrgID identifies a verified contributing organization.
type OrgID string

// ParseOrgID validates and returns an OrgID. Org IDs are UUIDs issued at
// verification time.
func ParseOrgID(s string) (OrgID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid org id: %w", err)
	}
	return OrgID(s), nil
}

// NewOrgID generates a fresh org ID.
func NewOrgID() OrgID {
	return OrgID(uuid.NewString())
}

func (o OrgID) String() string { return string(o) }
func (o OrgID) IsNil() bool    { return o == "" }

// RuleID identifies a shared detection rule being calibrated.
type RuleID string

var ruleIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,127}$`)

// ParseRuleID validates and returns a RuleID.
func ParseRuleID(s string) (RuleID, error) {
	if !ruleIDPattern.MatchString(s) {
		return "", fmt.Errorf("invalid rule id %q", s)
	}
	return RuleID(s), nil
}

func (r RuleID) String() string { return string(r) }
func (r RuleID) IsNil() bool    { return r == "" }

// RoundID identifies one calibration round. ULIDs keep round IDs
// lexicographically sortable by creation time, which makes result history
// queries a plain ORDER BY.
type RoundID string

// NewRoundID generates a round ID for the given wall-clock time.
func NewRoundID(at time.Time) RoundID {
	return RoundID(ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String())
}

// ParseRoundID validates and returns a RoundID.
func ParseRoundID(s string) (RoundID, error) {
	if _, err := ulid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid round id: %w", err)
	}
	return RoundID(s), nil
}

func (r RoundID) String() string { return string(r) }
func (r RoundID) IsNil() bool    { return r == "" }

// Nonce is a 64-hex-char value bound to exactly one verified identity.
type Nonce string

const nonceHexLen = 64

var hexPattern = regexp.MustCompile(`^[0-9a-f]+$`)

// ParseNonce validates and returns a Nonce.
func ParseNonce(s string) (Nonce, error) {
	if len(s) != nonceHexLen || !hexPattern.MatchString(s) {
		return "", fmt.Errorf("nonce must be %d lowercase hex characters", nonceHexLen)
	}
	return Nonce(s), nil
}

// NewNonce draws a nonce from the platform CSPRNG.
func NewNonce() (Nonce, error) {
	buf := make([]byte, nonceHexLen/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate nonce: %w", err)
	}
	return Nonce(fmt.Sprintf("%x", buf)), nil
}

func (n Nonce) String() string { return string(n) }
func (n Nonce) IsNil() bool    { return n == "" }

// PublicKeyHex is a contributor-supplied public key, 64–512 hex chars. The
// service treats it as an opaque commitment; key algorithm is the
// contributor's concern.
type PublicKeyHex string

const (
	publicKeyMinLen = 64
	publicKeyMaxLen = 512
)

// ParsePublicKeyHex validates and returns a PublicKeyHex.
func ParsePublicKeyHex(s string) (PublicKeyHex, error) {
	if len(s) < publicKeyMinLen || len(s) > publicKeyMaxLen {
		return "", fmt.Errorf("public key must be %d-%d hex characters", publicKeyMinLen, publicKeyMaxLen)
	}
	if len(s)%2 != 0 || !hexPattern.MatchString(s) {
		return "", fmt.Errorf("public key must be lowercase hex")
	}
	return PublicKeyHex(s), nil
}

func (p PublicKeyHex) String() string { return string(p) }
func (p PublicKeyHex) IsNil() bool    { return p == "" }
