package models

// RosterCard is one card of a participant's persisted roster snapshot,
// frozen at match creation. The damage resolver derives a participant's
// combat contribution from these rows; the engine never edits them.
type RosterCard struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"index;not null" json:"external_user_id"`
	CardID         string `gorm:"not null" json:"card_id"`
	Power          int    `gorm:"not null" json:"power"`
	Level          int    `gorm:"not null;default:1" json:"level"`
	EquipmentBonus int    `gorm:"not null;default:0" json:"equipment_bonus"`

	Timestamps
}
