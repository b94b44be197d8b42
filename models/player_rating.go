package models

// DefaultRating is the starting skill rating for a participant with no
// recorded matches.
const DefaultRating = 1200

// PlayerRating is a participant's persisted skill rating. It moves by exactly
// one delta per completed match the participant appears in, and is only ever
// written by match settlement.
type PlayerRating struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Rating         int    `gorm:"not null;default:1200" json:"rating"`
	Wins           int64  `gorm:"not null;default:0" json:"wins"`
	Losses         int64  `gorm:"not null;default:0" json:"losses"`

	Timestamps
}
