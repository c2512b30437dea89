package verifier

import (
	"context"
	"fmt"
	"time"

	"calibra/internal/identity/models"
)

// AccountDirectory is the external org-account provider boundary (e.g. a
// code-hosting organization API). Implemented elsewhere; the verifier only
// consumes the facts it needs.
type AccountDirectory interface {
	AccountCreatedAt(ctx context.Context, handle string) (time.Time, error)
	MemberCount(ctx context.Context, handle string) (int, error)
}

// OrgAccountConfig holds the threshold criteria for org-account
// verification.
type OrgAccountConfig struct {
	MinAccountAge time.Duration
	MinMembers    int
}

// DefaultOrgAccountConfig matches consortium governance defaults.
func DefaultOrgAccountConfig() OrgAccountConfig {
	return OrgAccountConfig{
		MinAccountAge: 180 * 24 * time.Hour,
		MinMembers:    3,
	}
}

// OrgAccountVerifier verifies an organization through its account age and
// membership count.
type OrgAccountVerifier struct {
	directory AccountDirectory
	cfg       OrgAccountConfig
	now       func() time.Time
}

func NewOrgAccountVerifier(directory AccountDirectory, cfg OrgAccountConfig) *OrgAccountVerifier {
	return &OrgAccountVerifier{directory: directory, cfg: cfg, now: time.Now}
}

func (v *OrgAccountVerifier) Method() models.VerificationMethod {
	return models.MethodOrgAccount
}

func (v *OrgAccountVerifier) Verify(ctx context.Context, req models.VerificationRequest) ([]string, *models.Rejection, error) {
	if req.AccountHandle == "" {
		return nil, &models.Rejection{
			Method:         v.Method(),
			Reason:         "account handle is required",
			CriteriaFailed: []string{"account_handle_present"},
		}, nil
	}

	createdAt, err := v.directory.AccountCreatedAt(ctx, req.AccountHandle)
	if err != nil {
		return nil, nil, fmt.Errorf("account directory lookup: %w", err)
	}
	members, err := v.directory.MemberCount(ctx, req.AccountHandle)
	if err != nil {
		return nil, nil, fmt.Errorf("member count lookup: %w", err)
	}

	var failed []string
	if v.now().Sub(createdAt) < v.cfg.MinAccountAge {
		failed = append(failed, fmt.Sprintf("account_age>=%s", v.cfg.MinAccountAge))
	}
	if members < v.cfg.MinMembers {
		failed = append(failed, fmt.Sprintf("members>=%d", v.cfg.MinMembers))
	}
	if len(failed) > 0 {
		return nil, &models.Rejection{
			Method:         v.Method(),
			Reason:         "account does not meet threshold criteria",
			CriteriaFailed: failed,
		}, nil
	}

	return []string{
		fmt.Sprintf("account_age>=%s", v.cfg.MinAccountAge),
		fmt.Sprintf("members>=%d", v.cfg.MinMembers),
	}, nil, nil
}
