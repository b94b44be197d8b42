package services

import (
	"errors"
	"fmt"
	"math"

	"card-battle-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KFactor scales how far a single result moves the ratings.
const KFactor = 32

// RatingDelta computes the Elo-style rating movement for a decisive match.
// The winner's expected score is 1 / (1 + 10^((loser-winner)/400)); the delta
// is K * (1 - expected), rounded, and applied symmetrically: winner gains
// delta, loser loses delta. Pure function — no storage, no clock.
//
// The delta is clamped to at least 1 so ratings always move after a decisive
// match, even for a heavy favorite.
func RatingDelta(winnerRating, loserRating int) int {
	expected := 1.0 / (1.0 + math.Pow(10, float64(loserRating-winnerRating)/400.0))
	delta := int(math.Round(KFactor * (1.0 - expected)))
	if delta < 1 {
		delta = 1
	}
	return delta
}

// loadRating fetches (or lazily creates) a participant's rating row inside tx.
func loadRating(tx *gorm.DB, externalUserID string) (*models.PlayerRating, error) {
	var r models.PlayerRating
	err := tx.Where("external_user_id = ?", externalUserID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		r = models.PlayerRating{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Rating:         models.DefaultRating,
		}
		if err := tx.Create(&r).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return &r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &r, nil
}

// applyRatings moves both participants' ratings by delta inside tx. The
// updates are relative (rating + delta, never an absolute overwrite): a
// participant can sit in two matches that settle concurrently, and the match
// row lock does not cover rating rows, so a blind write-back would drop the
// other settlement's delta.
func applyRatings(tx *gorm.DB, winner, loser *models.PlayerRating, delta int) error {
	if err := tx.Model(winner).Updates(map[string]interface{}{
		"rating": gorm.Expr("rating + ?", delta),
		"wins":   gorm.Expr("wins + 1"),
	}).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := tx.Model(loser).Updates(map[string]interface{}{
		"rating": gorm.Expr("rating - ?", delta),
		"losses": gorm.Expr("losses + 1"),
	}).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
