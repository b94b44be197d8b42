package services

import (
	"errors"
	"fmt"
	"strings"

	"card-battle-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClaimService guards one-time reward effects with insert-as-lock records.
// The first successful insert of a uniquely-keyed claim row *is* the
// synchronization primitive — no separate lock object.
type ClaimService struct {
	DB *gorm.DB
}

func NewClaimService(db *gorm.DB) *ClaimService {
	return &ClaimService{DB: db}
}

// Claim inserts the claim record and, only if this caller won the insert,
// runs effects in the same transaction. A duplicate token returns
// ErrDuplicateClaim without re-applying effects — the caller treats that as
// "already done", not a failure.
//
// The token must be generated once per logical event (one per settlement, one
// per loot roll) and carried through retries unchanged. A caller that mints a
// fresh token per retry defeats the mechanism.
func (s *ClaimService) Claim(tx *gorm.DB, claim models.RewardClaim, effects func(tx *gorm.DB) error) error {
	if claim.ID == "" {
		claim.ID = uuid.NewString()
	}
	if err := tx.Create(&claim).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateClaim
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if effects != nil {
		return effects(tx)
	}
	return nil
}

// Claimed reports whether a token was already consumed.
func (s *ClaimService) Claimed(token string) (bool, error) {
	var n int64
	if err := s.DB.Model(&models.RewardClaim{}).
		Where("claim_token = ?", token).
		Count(&n).Error; err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

// isUniqueViolation matches the duplicate-key error of both postgres
// (pgx: SQLSTATE 23505) and sqlite (UNIQUE constraint failed). The text
// fallback covers setups without gorm's error translation enabled.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
