package verifier

import (
	"context"
	"fmt"
	"time"

	"calibra/internal/identity/models"
)

// PaymentDirectory is the payment-provider boundary. Only the facts needed
// for threshold checks cross it; card or bank details never do.
type PaymentDirectory interface {
	AccountOpenedAt(ctx context.Context, accountRef string) (time.Time, error)
	HasVerifiedPaymentMethod(ctx context.Context, accountRef string) (bool, error)
}

// PaymentConfig holds the threshold criteria for payment verification.
type PaymentConfig struct {
	MinAccountAge time.Duration
}

// DefaultPaymentConfig matches consortium governance defaults.
func DefaultPaymentConfig() PaymentConfig {
	return PaymentConfig{MinAccountAge: 90 * 24 * time.Hour}
}

// PaymentVerifier verifies an organization through its payment account age
// and a verified payment method on file.
type PaymentVerifier struct {
	directory PaymentDirectory
	cfg       PaymentConfig
	now       func() time.Time
}

func NewPaymentVerifier(directory PaymentDirectory, cfg PaymentConfig) *PaymentVerifier {
	return &PaymentVerifier{directory: directory, cfg: cfg, now: time.Now}
}

func (v *PaymentVerifier) Method() models.VerificationMethod {
	return models.MethodPayment
}

func (v *PaymentVerifier) Verify(ctx context.Context, req models.VerificationRequest) ([]string, *models.Rejection, error) {
	if req.PaymentAccountRef == "" {
		return nil, &models.Rejection{
			Method:         v.Method(),
			Reason:         "payment account reference is required",
			CriteriaFailed: []string{"payment_account_present"},
		}, nil
	}

	openedAt, err := v.directory.AccountOpenedAt(ctx, req.PaymentAccountRef)
	if err != nil {
		return nil, nil, fmt.Errorf("payment account lookup: %w", err)
	}
	hasMethod, err := v.directory.HasVerifiedPaymentMethod(ctx, req.PaymentAccountRef)
	if err != nil {
		return nil, nil, fmt.Errorf("payment method lookup: %w", err)
	}

	var failed []string
	if v.now().Sub(openedAt) < v.cfg.MinAccountAge {
		failed = append(failed, fmt.Sprintf("payment_account_age>=%s", v.cfg.MinAccountAge))
	}
	if !hasMethod {
		failed = append(failed, "verified_payment_method")
	}
	if len(failed) > 0 {
		return nil, &models.Rejection{
			Method:         v.Method(),
			Reason:         "payment account does not meet threshold criteria",
			CriteriaFailed: failed,
		}, nil
	}

	return []string{
		fmt.Sprintf("payment_account_age>=%s", v.cfg.MinAccountAge),
		"verified_payment_method",
	}, nil, nil
}
