package services

import (
	"fmt"
	"time"

	"card-battle-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IntakeService accepts fully-formed matches from the matchmaking service.
// The engine never invents pairings itself; it only validates, fills engine
// defaults, and starts the first turn clock.
type IntakeService struct {
	DB     *gorm.DB
	Policy EnginePolicy
}

func NewIntakeService(db *gorm.DB, policy EnginePolicy) *IntakeService {
	return &IntakeService{DB: db, Policy: policy}
}

// MatchIntake is what matchmaking hands over.
type MatchIntake struct {
	ID                 string  `json:"id"`
	PlayerA            string  `json:"player_a"`
	PlayerB            string  `json:"player_b"`
	FirstTurnOwner     string  `json:"first_turn_owner"`
	TurnTimeoutSeconds int     `json:"turn_timeout_seconds"`
	EntryFee           float64 `json:"entry_fee"`
}

// Accept registers an active match with zeroed warnings and the first turn
// clock running.
func (s *IntakeService) Accept(in MatchIntake) (*models.Match, error) {
	if in.PlayerA == "" || in.PlayerB == "" || in.PlayerA == in.PlayerB {
		return nil, fmt.Errorf("a match needs two distinct participants")
	}
	if in.TurnTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("turn_timeout_seconds must be positive")
	}
	if in.EntryFee < 0 {
		return nil, fmt.Errorf("entry_fee cannot be negative")
	}

	owner := in.FirstTurnOwner
	if owner == "" {
		owner = in.PlayerA
	}
	if owner != in.PlayerA && owner != in.PlayerB {
		return nil, fmt.Errorf("first_turn_owner %q is not a participant", owner)
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	m := models.Match{
		ID:                 id,
		PlayerA:            in.PlayerA,
		PlayerB:            in.PlayerB,
		Status:             models.MatchStatusActive,
		CurrentTurnOwner:   owner,
		TurnStartedAt:      &now,
		TurnTimeoutSeconds: in.TurnTimeoutSeconds,
		PlayerAHP:          s.Policy.DefaultPlayerHP,
		PlayerBHP:          s.Policy.DefaultPlayerHP,
		EntryFee:           in.EntryFee,
	}
	if err := s.DB.Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("match %s already exists", id)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &m, nil
}
