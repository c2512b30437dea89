package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "calibra/pkg/domain"
)

// AttestationValidator validates identity attestation tokens issued at
// verification time.
type AttestationValidator interface {
	ValidateAttestation(tokenString string) (*AttestationClaims, error)
}

// AttestationClaims are the claims handlers care about after validation.
type AttestationClaims struct {
	OrgID  string
	Method string
}

type contextKeyOrgID struct{}
type contextKeyVerificationMethod struct{}

// Context keys exported for handlers and tests.
var (
	ContextKeyOrgID              = contextKeyOrgID{}
	ContextKeyVerificationMethod = contextKeyVerificationMethod{}
)

// GetOrgID retrieves the attested org ID from the context. Empty when the
// route skipped RequireAttestation.
func GetOrgID(ctx context.Context) id.OrgID {
	if orgID, ok := ctx.Value(ContextKeyOrgID).(string); ok {
		return id.OrgID(orgID)
	}
	return ""
}

// GetVerificationMethod retrieves the attested verification method.
func GetVerificationMethod(ctx context.Context) string {
	if m, ok := ctx.Value(ContextKeyVerificationMethod).(string); ok {
		return m
	}
	return ""
}

// RequireAttestation guards routes that act on behalf of a verified org.
// The attestation proves the caller completed identity verification; the
// nonce binding check inside the service proves the submission key belongs
// to that org. Both are required for contribution intake.
func RequireAttestation(validator AttestationValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				unauthorized(w, r, logger, "missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateAttestation(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid attestation",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				unauthorized(w, r, logger, "invalid or expired attestation")
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, ContextKeyOrgID, claims.OrgID)
			ctx = context.WithValue(ctx, ContextKeyVerificationMethod, claims.Method)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if _, err := w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`)); err != nil {
		logger.ErrorContext(r.Context(), "failed to write unauthorized response",
			"error", err,
			"request_id", GetRequestID(r.Context()),
		)
	}
}
