package services

import (
	"testing"

	"card-battle-engine/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatingDeltaEqualRatings(t *testing.T) {
	// expected score 0.5 each, K=32 → delta 16
	delta := RatingDelta(1200, 1200)
	assert.Equal(t, 16, delta)
	assert.Equal(t, 1216, 1200+delta)
	assert.Equal(t, 1184, 1200-delta)
}

func TestRatingDeltaUnderdogWinsBig(t *testing.T) {
	// the lower-rated winner gains more than half of K
	delta := RatingDelta(1000, 1400)
	assert.Greater(t, delta, 16)
	assert.LessOrEqual(t, delta, KFactor)
}

func TestRatingDeltaHeavyFavoriteStillMoves(t *testing.T) {
	// expected score ≈ 1 would round the delta to 0; the clamp keeps
	// ratings moving after every decisive match
	delta := RatingDelta(2800, 800)
	assert.Equal(t, 1, delta)
}

func TestRatingDeltaAlwaysPositiveAndBounded(t *testing.T) {
	ratings := []int{0, 400, 800, 1200, 1600, 2000, 2400, 3000}
	for _, winner := range ratings {
		for _, loser := range ratings {
			delta := RatingDelta(winner, loser)
			assert.GreaterOrEqual(t, delta, 1, "winner=%d loser=%d", winner, loser)
			assert.LessOrEqual(t, delta, KFactor, "winner=%d loser=%d", winner, loser)
			// winner strictly rises, loser strictly falls
			assert.Greater(t, winner+delta, winner)
			assert.Less(t, loser-delta, loser)
		}
	}
}

func TestApplyRatingsFromStaleSnapshotsAccumulates(t *testing.T) {
	e := newTestEngine(t)

	// Two settlements sharing p1 both read the rating rows before either
	// writes. The relative updates must land both deltas; an absolute
	// write-back of the snapshot would let the second settlement erase the
	// first one's delta.
	w1, err := loadRating(e.db, "p1")
	require.NoError(t, err)
	l1, err := loadRating(e.db, "p2")
	require.NoError(t, err)
	w2, err := loadRating(e.db, "p1")
	require.NoError(t, err)
	l2, err := loadRating(e.db, "p3")
	require.NoError(t, err)

	require.NoError(t, applyRatings(e.db, w1, l1, 16))
	require.NoError(t, applyRatings(e.db, w2, l2, 16))

	var r models.PlayerRating
	require.NoError(t, e.db.Where("external_user_id = ?", "p1").First(&r).Error)
	assert.Equal(t, 1232, r.Rating)
	assert.EqualValues(t, 2, r.Wins)

	r = models.PlayerRating{}
	require.NoError(t, e.db.Where("external_user_id = ?", "p2").First(&r).Error)
	assert.Equal(t, 1184, r.Rating)
	assert.EqualValues(t, 1, r.Losses)
}

func TestRatingDeltaDeterministic(t *testing.T) {
	for i := 0; i < 5; i++ {
		assert.Equal(t, RatingDelta(1340, 1180), RatingDelta(1340, 1180))
	}
}
