package httptransport_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	consenthandler "calibra/internal/consent/handler"
	"calibra/internal/consent/models"
	"calibra/internal/platform/middleware"
	httptransport "calibra/internal/transport/http"
	id "calibra/pkg/domain"
	"calibra/pkg/testutil"
)

type stubValidator struct {
	orgID id.OrgID
}

func (v stubValidator) ValidateAttestation(token string) (*middleware.AttestationClaims, error) {
	if token != "valid-attestation" {
		return nil, errors.New("bad token")
	}
	return &middleware.AttestationClaims{OrgID: v.orgID.String(), Method: "org_account"}, nil
}

type stubConsent struct {
	granted map[id.ConsentScope]bool
}

func (s *stubConsent) Grant(_ context.Context, _ id.OrgID, scope id.ConsentScope) error {
	s.granted[scope] = true
	return nil
}

func (s *stubConsent) Revoke(_ context.Context, _ id.OrgID, scope id.ConsentScope) error {
	delete(s.granted, scope)
	return nil
}

func (s *stubConsent) ListByOrg(context.Context, id.OrgID) ([]models.ConsentRecord, error) {
	return nil, nil
}

func TestRouterScaffold(t *testing.T) {
	testutil.Given(t, "the HTTP router with a consent module mounted", func(t *testing.T) {
		orgID := id.NewOrgID()
		consent := &stubConsent{granted: map[id.ConsentScope]bool{}}
		logger := slog.New(slog.DiscardHandler)
		router := httptransport.NewRouter(
			httptransport.Options{Logger: logger, Validator: stubValidator{orgID: orgID}},
			consenthandler.New(consent, logger),
		)

		testutil.When(t, "probing the health endpoint", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil))
			assert.Equal(t, http.StatusOK, rr.Code)
		})

		testutil.When(t, "calling a protected route without an attestation", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/consent/grant", map[string]string{"scope": "aggregate_sharing"})
			rr := testutil.DoRequest(router, req)

			testutil.Then(t, "the request is rejected before reaching the handler", func(t *testing.T) {
				assert.Equal(t, http.StatusUnauthorized, rr.Code)
				assert.Empty(t, consent.granted)
			})
		})

		testutil.When(t, "calling it with a valid attestation", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/consent/grant", map[string]string{"scope": "aggregate_sharing"})
			req.Header.Set("Authorization", "Bearer valid-attestation")
			rr := testutil.DoRequest(router, req)

			testutil.Then(t, "the grant lands with the attested org", func(t *testing.T) {
				require.Equal(t, http.StatusOK, rr.Code)
				var body map[string]string
				testutil.DecodeJSON(t, rr, &body)
				assert.Equal(t, "granted", body["status"])
				assert.True(t, consent.granted[id.ConsentScopeAggregateSharing])
			})
		})

		testutil.When(t, "requesting an unknown route", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/nope", nil))
			assert.Equal(t, http.StatusNotFound, rr.Code)
		})
	})
}

func TestReadyzReportsFailingDependencies(t *testing.T) {
	router := httptransport.NewRouter(httptransport.Options{
		Ready: map[string]func() error{
			"postgres": func() error { return nil },
			"redis":    func() error { return errors.New("connection refused") },
		},
	})

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var body map[string]string
	testutil.DecodeJSON(t, rr, &body)
	assert.Equal(t, "ok", body["postgres"])
	assert.Contains(t, body["redis"], "connection refused")
}
