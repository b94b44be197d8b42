package services

import (
	"testing"

	"card-battle-engine/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClaimAppliesEffectsOnce(t *testing.T) {
	e := newTestEngine(t)
	applied := 0

	claim := models.RewardClaim{ClaimToken: "loot:kill-42", UserID: "p1", Amount: 3}

	err := e.claims.Claim(e.db, claim, func(tx *gorm.DB) error {
		applied++
		return nil
	})
	require.NoError(t, err)

	// same logical event, retried
	err = e.claims.Claim(e.db, claim, func(tx *gorm.DB) error {
		applied++
		return nil
	})
	assert.ErrorIs(t, err, ErrDuplicateClaim)
	assert.Equal(t, 1, applied)

	claimed, err := e.claims.Claimed("loot:kill-42")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestClaimDistinctTokensAreIndependent(t *testing.T) {
	e := newTestEngine(t)

	for _, token := range []string{"loot:kill-1", "loot:kill-2"} {
		err := e.claims.Claim(e.db, models.RewardClaim{ClaimToken: token, UserID: "p1", Amount: 1}, nil)
		require.NoError(t, err)
	}

	var n int64
	require.NoError(t, e.db.Model(&models.RewardClaim{}).Count(&n).Error)
	assert.EqualValues(t, 2, n)
}

func TestBalanceCreditIsIdempotentPerToken(t *testing.T) {
	e := newTestEngine(t)
	token := SettlementClaimToken("match-1")

	require.NoError(t, e.balance.Credit(e.db, "p1", 15, token, "match-1"))

	// crash-and-retry replays the same token
	err := e.balance.Credit(e.db, "p1", 15, token, "match-1")
	assert.ErrorIs(t, err, ErrDuplicateClaim)

	got, err := e.balance.BalanceOf("p1")
	require.NoError(t, err)
	assert.Equal(t, 15.0, got)
}

func TestBalanceCreditAccumulatesAcrossMatches(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.balance.Credit(e.db, "p1", 15, SettlementClaimToken("m1"), "m1"))
	require.NoError(t, e.balance.Credit(e.db, "p1", 25, SettlementClaimToken("m2"), "m2"))

	got, err := e.balance.BalanceOf("p1")
	require.NoError(t, err)
	assert.Equal(t, 40.0, got)
}
