package services

import (
	"fmt"

	"card-battle-engine/models"

	"gorm.io/gorm"
)

// DamageResolver returns a participant's combat contribution from their
// persisted roster snapshot. The engine treats this as an opaque
// deterministic function and never inspects how the number is derived.
type DamageResolver interface {
	Contribution(externalUserID string) (int, error)
}

// RosterDamageResolver derives the contribution from roster_card rows:
// sum of power scaled by card level plus flat equipment bonuses. Deterministic
// for a fixed roster snapshot.
type RosterDamageResolver struct {
	DB *gorm.DB
}

func NewRosterDamageResolver(db *gorm.DB) *RosterDamageResolver {
	return &RosterDamageResolver{DB: db}
}

func (r *RosterDamageResolver) Contribution(externalUserID string) (int, error) {
	var cards []models.RosterCard
	if err := r.DB.Where("external_user_id = ?", externalUserID).
		Order("card_id ASC").
		Find(&cards).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	total := 0
	for _, c := range cards {
		level := c.Level
		if level < 1 {
			level = 1
		}
		// power scales 10% per level above 1
		scaled := c.Power + c.Power*(level-1)/10
		total += scaled + c.EquipmentBonus
	}
	if total < 0 {
		total = 0
	}
	return total, nil
}
