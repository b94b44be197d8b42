package models

import (
	"time"

	"gorm.io/gorm"
)

// BalanceMirror mirrors spendable balances from the wallet service.
// Settlement credits land here first; the balance sync worker reconciles the
// mirror against the custodial wallet service.
// Table name: balance_mirror
type BalanceMirror struct {
	ID             string     `gorm:"primaryKey;type:uuid;not null" json:"id"`
	UserID         string     `gorm:"type:varchar(128);not null;uniqueIndex" json:"user_id"` // External user ID
	Currency       string     `gorm:"type:varchar(16);not null;default:'credits'" json:"currency"`
	Balance        float64    `gorm:"not null;default:0" json:"balance"`
	LastSyncedAt   *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName keeps the mirror table name explicit.
func (BalanceMirror) TableName() string { return "balance_mirror" }
