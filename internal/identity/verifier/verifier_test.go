package verifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calibra/internal/identity/models"
)

func staticDirectory() *StaticDirectory {
	return &StaticDirectory{
		Accounts: map[string]StaticAccount{
			"acme-payments": {CreatedAt: time.Now().Add(-400 * 24 * time.Hour), Members: 12},
			"fresh-org":     {CreatedAt: time.Now().Add(-10 * 24 * time.Hour), Members: 12},
			"solo-org":      {CreatedAt: time.Now().Add(-400 * 24 * time.Hour), Members: 1},
		},
		Payments: map[string]StaticPayment{
			"pay-acme":       {OpenedAt: time.Now().Add(-200 * 24 * time.Hour), VerifiedMethod: true},
			"pay-unverified": {OpenedAt: time.Now().Add(-200 * 24 * time.Hour), VerifiedMethod: false},
		},
	}
}

func TestOrgAccountVerifier(t *testing.T) {
	ctx := context.Background()
	v := NewOrgAccountVerifier(staticDirectory(), DefaultOrgAccountConfig())

	t.Run("passing account returns its checked criteria", func(t *testing.T) {
		criteria, rejection, err := v.Verify(ctx, models.VerificationRequest{
			Method:        models.MethodOrgAccount,
			AccountHandle: "acme-payments",
		})
		require.NoError(t, err)
		assert.Nil(t, rejection)
		assert.Len(t, criteria, 2)
	})

	t.Run("young account is rejected, not errored", func(t *testing.T) {
		criteria, rejection, err := v.Verify(ctx, models.VerificationRequest{
			Method:        models.MethodOrgAccount,
			AccountHandle: "fresh-org",
		})
		require.NoError(t, err)
		require.NotNil(t, rejection)
		assert.Nil(t, criteria)
		assert.Len(t, rejection.CriteriaFailed, 1)
	})

	t.Run("too few members is rejected", func(t *testing.T) {
		_, rejection, err := v.Verify(ctx, models.VerificationRequest{
			Method:        models.MethodOrgAccount,
			AccountHandle: "solo-org",
		})
		require.NoError(t, err)
		require.NotNil(t, rejection)
	})

	t.Run("missing handle is rejected", func(t *testing.T) {
		_, rejection, err := v.Verify(ctx, models.VerificationRequest{Method: models.MethodOrgAccount})
		require.NoError(t, err)
		require.NotNil(t, rejection)
	})

	t.Run("unknown handle is an infrastructure error", func(t *testing.T) {
		_, _, err := v.Verify(ctx, models.VerificationRequest{
			Method:        models.MethodOrgAccount,
			AccountHandle: "nobody",
		})
		assert.Error(t, err)
	})
}

func TestPaymentVerifier(t *testing.T) {
	ctx := context.Background()
	v := NewPaymentVerifier(staticDirectory(), DefaultPaymentConfig())

	t.Run("verified aged account passes", func(t *testing.T) {
		criteria, rejection, err := v.Verify(ctx, models.VerificationRequest{
			Method:            models.MethodPayment,
			PaymentAccountRef: "pay-acme",
		})
		require.NoError(t, err)
		assert.Nil(t, rejection)
		assert.Contains(t, criteria, "verified_payment_method")
	})

	t.Run("no verified method is rejected", func(t *testing.T) {
		_, rejection, err := v.Verify(ctx, models.VerificationRequest{
			Method:            models.MethodPayment,
			PaymentAccountRef: "pay-unverified",
		})
		require.NoError(t, err)
		require.NotNil(t, rejection)
		assert.Contains(t, rejection.CriteriaFailed, "verified_payment_method")
	})
}
