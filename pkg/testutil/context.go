package testutil

import (
	"context"
	"net/http"

	"calibra/internal/platform/middleware"
	id "calibra/pkg/domain"
)

// WithOrg stamps the request context the way the attestation middleware
// would for an authenticated org.
func WithOrg(req *http.Request, orgID id.OrgID) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyOrgID, orgID.String())
	return req.WithContext(ctx)
}

// WithVerificationMethod adds the attested verification method.
func WithVerificationMethod(req *http.Request, method string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyVerificationMethod, method)
	return req.WithContext(ctx)
}
