package models

import (
	"time"

	"gorm.io/gorm"
)

// MatchStatus is the lifecycle state of a match. completed and expired are
// terminal: a match in either state is never mutated again.
type MatchStatus string

const (
	MatchStatusActive    MatchStatus = "active"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusExpired   MatchStatus = "expired"
)

// Settlement reasons recorded on terminal matches
const (
	ReasonKnockout       = "knockout"
	ReasonTimeoutForfeit = "timeout-forfeit"
	ReasonConcede        = "concede"
)

// Match is one active or finished pairing. Created fully-formed (active) by
// the matchmaking service; this engine only advances and settles it.
type Match struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	PlayerA string `gorm:"index;not null" json:"player_a"`
	PlayerB string `gorm:"index;not null" json:"player_b"`

	Status MatchStatus `gorm:"type:varchar(16);not null;default:'active';index;check:status IN ('active','completed','expired')" json:"status"`

	// Turn clock. TurnStartedAt nil = clock never started, not eligible for timeout.
	CurrentTurnOwner   string     `gorm:"not null" json:"current_turn_owner"`
	TurnStartedAt      *time.Time `json:"turn_started_at,omitempty"`
	TurnTimeoutSeconds int        `gorm:"not null" json:"turn_timeout_seconds"`

	// Per-participant timeout warnings. Only ever increase while active.
	TimeoutWarningsA int `gorm:"not null;default:0" json:"timeout_warnings_a"`
	TimeoutWarningsB int `gorm:"not null;default:0" json:"timeout_warnings_b"`

	PlayerAHP int `gorm:"not null" json:"player_a_hp"`
	PlayerBHP int `gorm:"not null" json:"player_b_hp"`

	EntryFee     float64  `gorm:"not null;default:0" json:"entry_fee"`
	WinnerReward *float64 `json:"winner_reward,omitempty"`

	// Settlement fields, nil until the match is settled.
	Winner       *string    `json:"winner,omitempty"`
	Loser        *string    `json:"loser,omitempty"`
	RatingDelta  *int       `json:"rating_delta,omitempty"`
	SettleReason *string    `gorm:"type:varchar(32)" json:"settle_reason,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`

	Timestamps
}

// Opponent returns the other participant of the match.
func (m *Match) Opponent(participant string) string {
	if participant == m.PlayerA {
		return m.PlayerB
	}
	return m.PlayerA
}

// HasParticipant reports whether id is one of the two players.
func (m *Match) HasParticipant(id string) bool {
	return id == m.PlayerA || id == m.PlayerB
}

// Warnings returns the timeout warning count for a participant.
func (m *Match) Warnings(participant string) int {
	if participant == m.PlayerA {
		return m.TimeoutWarningsA
	}
	return m.TimeoutWarningsB
}

// HP returns the remaining hit points for a participant.
func (m *Match) HP(participant string) int {
	if participant == m.PlayerA {
		return m.PlayerAHP
	}
	return m.PlayerBHP
}

// Terminal reports whether the match reached a terminal status.
func (m *Match) Terminal() bool {
	return m.Status != MatchStatusActive
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
