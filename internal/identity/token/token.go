// Package token issues and validates identity attestation tokens.
//
// An attestation is the portable proof that an org completed verification;
// it authorizes API calls but is not the nonce binding — submissions are
// additionally checked against the binding service.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"calibra/internal/platform/middleware"
	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
)

// Claims represents the JWT claims for identity attestations.
type Claims struct {
	OrgID  string `json:"org_id"`
	Method string `json:"method"`
	jwt.RegisteredClaims
}

// Service handles attestation creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func NewService(signingKey, issuer string, ttl time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
	}
}

// Issue creates a signed attestation for a verified org.
func (s *Service) Issue(orgID id.OrgID, method string) (string, error) {
	now := time.Now()
	claims := Claims{
		OrgID:  orgID.String(),
		Method: method,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// ValidateAttestation parses and validates a token, satisfying the
// middleware.AttestationValidator interface.
func (s *Service) ValidateAttestation(tokenString string) (*middleware.AttestationClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "attestation has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid attestation")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid attestation")
	}
	return &middleware.AttestationClaims{OrgID: claims.OrgID, Method: claims.Method}, nil
}
