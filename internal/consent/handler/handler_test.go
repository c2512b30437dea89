package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calibra/internal/consent/models"
	id "calibra/pkg/domain"
	"calibra/pkg/testutil"
)

type fakeService struct {
	grants  []id.ConsentScope
	revokes []id.ConsentScope
	records []models.ConsentRecord
	lastOrg id.OrgID
}

func (f *fakeService) Grant(_ context.Context, orgID id.OrgID, scope id.ConsentScope) error {
	f.lastOrg = orgID
	f.grants = append(f.grants, scope)
	return nil
}

func (f *fakeService) Revoke(_ context.Context, orgID id.OrgID, scope id.ConsentScope) error {
	f.lastOrg = orgID
	f.revokes = append(f.revokes, scope)
	return nil
}

func (f *fakeService) ListByOrg(_ context.Context, orgID id.OrgID) ([]models.ConsentRecord, error) {
	f.lastOrg = orgID
	return f.records, nil
}

func TestHandleGrant(t *testing.T) {
	svc := &fakeService{}
	h := New(svc, slog.New(slog.DiscardHandler))
	orgID := id.NewOrgID()

	t.Run("passes the attested org and parsed scope to the service", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/consent/grant", map[string]string{"scope": "benchmarking"})
		rr := testutil.DoRequest(http.HandlerFunc(h.handleGrant), testutil.WithOrg(req, orgID))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, orgID, svc.lastOrg)
		assert.Equal(t, []id.ConsentScope{id.ConsentScopeBenchmarking}, svc.grants)
	})

	t.Run("rejects an unknown scope before touching the service", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/consent/grant", map[string]string{"scope": "telemetry"})
		rr := testutil.DoRequest(http.HandlerFunc(h.handleGrant), testutil.WithOrg(req, orgID))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Len(t, svc.grants, 1, "only the earlier valid grant")
	})
}

func TestHandleListIncludesRevokedHistory(t *testing.T) {
	granted := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	revoked := granted.Add(24 * time.Hour)
	svc := &fakeService{records: []models.ConsentRecord{
		{Scope: id.ConsentScopeAggregateSharing, GrantedAt: granted, RevokedAt: &revoked},
		{Scope: id.ConsentScopeAggregateSharing, GrantedAt: revoked.Add(time.Hour)},
	}}
	h := New(svc, slog.New(slog.DiscardHandler))

	req := testutil.NewJSONRequest(t, http.MethodGet, "/consent", nil)
	rr := testutil.DoRequest(http.HandlerFunc(h.handleList), testutil.WithOrg(req, id.NewOrgID()))

	require.Equal(t, http.StatusOK, rr.Code)
	var out []grantResponse
	testutil.DecodeJSON(t, rr, &out)
	require.Len(t, out, 2)
	assert.NotNil(t, out[0].RevokedAt, "revoked grants stay in the trail")
	assert.Nil(t, out[1].RevokedAt)
}
