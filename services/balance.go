package services

import (
	"errors"
	"fmt"
	"time"

	"card-battle-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BalanceService credits winnings to the local balance mirror. Every credit
// is guarded by a claim token so a retried settlement can never pay twice.
type BalanceService struct {
	DB     *gorm.DB
	Claims *ClaimService
}

func NewBalanceService(db *gorm.DB, claims *ClaimService) *BalanceService {
	return &BalanceService{DB: db, Claims: claims}
}

// Credit adds amount to userID's mirrored balance inside tx, at most once per
// claim token. Returns ErrDuplicateClaim when the token was already consumed.
func (s *BalanceService) Credit(tx *gorm.DB, userID string, amount float64, token, matchID string) error {
	claim := models.RewardClaim{
		ClaimToken: token,
		MatchID:    matchID,
		UserID:     userID,
		Amount:     amount,
	}
	return s.Claims.Claim(tx, claim, func(tx *gorm.DB) error {
		return creditMirror(tx, userID, amount)
	})
}

func creditMirror(tx *gorm.DB, userID string, amount float64) error {
	var row models.BalanceMirror
	err := tx.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		now := time.Now()
		row = models.BalanceMirror{
			ID:        uuid.NewString(),
			UserID:    userID,
			Currency:  "credits",
			Balance:   amount,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := tx.Model(&row).
		Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// BalanceOf returns the mirrored balance for a participant (0 if no row yet).
func (s *BalanceService) BalanceOf(userID string) (float64, error) {
	var row models.BalanceMirror
	err := s.DB.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return row.Balance, nil
}
