package models

import "time"

// RewardClaim is the idempotency record for a one-time reward effect.
// The unique ClaimToken insert is the synchronization primitive: the first
// caller to insert the row owns the effect, later callers see a duplicate.
// Rows are never updated or deleted.
type RewardClaim struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	ClaimToken string    `gorm:"uniqueIndex;not null" json:"claim_token"`
	MatchID    string    `gorm:"index" json:"match_id,omitempty"`
	UserID     string    `gorm:"index;not null" json:"user_id"`
	Amount     float64   `gorm:"not null" json:"amount"`
	ClaimedAt  time.Time `json:"claimed_at" gorm:"autoCreateTime"`
}
