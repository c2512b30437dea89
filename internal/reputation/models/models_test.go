package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeight(t *testing.T) {
	base := OrganizationReputation{
		ReputationScore:  0.5,
		StakeStatus:      StakeStatusNone,
		ConsistencyScore: 0.5,
	}

	t.Run("neutral org without stake", func(t *testing.T) {
		// 0.5 reputation + 0.1 consistency bonus.
		assert.InDelta(t, 0.6, base.Weight(), 1e-9)
	})

	t.Run("stake credit caps at one thousand dollars", func(t *testing.T) {
		small := base
		small.StakeStatus = StakeStatusActive
		small.StakePledgeUSD = 500

		large := base
		large.StakeStatus = StakeStatusActive
		large.StakePledgeUSD = 1_000_000

		capped := base
		capped.StakeStatus = StakeStatusActive
		capped.StakePledgeUSD = 1000

		assert.InDelta(t, 1.0, small.Weight(), 1e-9) // 0.5+0.5+0.1 clamped
		assert.Equal(t, capped.Weight(), large.Weight(), "a million dollars buys no more than a thousand")
	})

	t.Run("total weight never exceeds one", func(t *testing.T) {
		r := OrganizationReputation{
			ReputationScore:  1.0,
			StakeStatus:      StakeStatusActive,
			StakePledgeUSD:   5000,
			ConsistencyScore: 1.0,
		}
		assert.Equal(t, 1.0, r.Weight())
	})

	t.Run("slashed and withdrawn stake contribute nothing", func(t *testing.T) {
		slashed := base
		slashed.StakeStatus = StakeStatusSlashed
		slashed.StakePledgeUSD = 1000

		withdrawn := base
		withdrawn.StakeStatus = StakeStatusWithdrawn
		withdrawn.StakePledgeUSD = 1000

		assert.Equal(t, base.Weight(), slashed.Weight())
		assert.Equal(t, base.Weight(), withdrawn.Weight())
	})

	t.Run("consistency bonus caps at 0.2", func(t *testing.T) {
		r := base
		r.ConsistencyScore = 1.0
		assert.InDelta(t, 0.7, r.Weight(), 1e-9)
	})

	t.Run("zero reputation with no extras is zero", func(t *testing.T) {
		r := OrganizationReputation{}
		assert.Zero(t, r.Weight())
	})
}

func TestNewOrganizationReputation(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	r := NewOrganizationReputation("org", now)
	assert.Equal(t, NeutralReputation, r.ReputationScore)
	assert.Equal(t, StakeStatusNone, r.StakeStatus)
	assert.False(t, r.HasActiveStake())
	assert.Zero(t, r.Version)
}

func TestParseStakeStatus(t *testing.T) {
	for _, valid := range []string{"none", "active", "slashed", "withdrawn"} {
		_, err := ParseStakeStatus(valid)
		assert.NoError(t, err)
	}
	_, err := ParseStakeStatus("frozen")
	assert.Error(t, err)
}
