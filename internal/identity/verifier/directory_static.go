package verifier

import (
	"context"
	"time"

	dErrors "calibra/pkg/domain-errors"
)

// StaticDirectory serves directory facts from fixed maps. It backs local
// development and tests; production deployments wire real provider
// clients behind the same interfaces.
type StaticDirectory struct {
	Accounts map[string]StaticAccount
	Payments map[string]StaticPayment
}

type StaticAccount struct {
	CreatedAt time.Time
	Members   int
}

type StaticPayment struct {
	OpenedAt       time.Time
	VerifiedMethod bool
}

func (d *StaticDirectory) AccountCreatedAt(_ context.Context, handle string) (time.Time, error) {
	account, ok := d.Accounts[handle]
	if !ok {
		return time.Time{}, dErrors.New(dErrors.CodeNotFound, "unknown account handle")
	}
	return account.CreatedAt, nil
}

func (d *StaticDirectory) MemberCount(_ context.Context, handle string) (int, error) {
	account, ok := d.Accounts[handle]
	if !ok {
		return 0, dErrors.New(dErrors.CodeNotFound, "unknown account handle")
	}
	return account.Members, nil
}

func (d *StaticDirectory) AccountOpenedAt(_ context.Context, accountRef string) (time.Time, error) {
	payment, ok := d.Payments[accountRef]
	if !ok {
		return time.Time{}, dErrors.New(dErrors.CodeNotFound, "unknown payment account")
	}
	return payment.OpenedAt, nil
}

func (d *StaticDirectory) HasVerifiedPaymentMethod(_ context.Context, accountRef string) (bool, error) {
	payment, ok := d.Payments[accountRef]
	if !ok {
		return false, dErrors.New(dErrors.CodeNotFound, "unknown payment account")
	}
	return payment.VerifiedMethod, nil
}
