package models

import "time"

// Move action types recorded in the log
const (
	ActionMove        = "move"
	ActionTimeoutSkip = "timeout_skip"
	ActionForfeit     = "forfeit"
)

// MoveRecord is one entry of a match's append-only move log. Rows are only
// ever inserted, in commit order; never edited or reordered.
type MoveRecord struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	MatchID    string    `gorm:"index;not null" json:"match_id"`
	TurnNumber int       `gorm:"not null" json:"turn_number"`
	Actor      string    `gorm:"not null" json:"actor"`
	ActionType string    `gorm:"type:varchar(16);not null" json:"action_type"`
	Damage     int       `gorm:"not null;default:0" json:"damage"`
	StateJSON  string    `gorm:"type:text" json:"state_json"` // match state snapshot after the move
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}
