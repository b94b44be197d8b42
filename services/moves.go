package services

import (
	"encoding/json"
	"errors"

	"card-battle-engine/models"

	"gorm.io/gorm"
)

// MoveService resolves normal (non-timeout) turns. Structurally it has the
// same atomicity requirements as the sweeper: validate the turn under the row
// lock, mutate, append to the log, all in one commit.
type MoveService struct {
	Store      *MatchStore
	Damage     DamageResolver
	Settlement *SettlementService
	Policy     EnginePolicy
}

func NewMoveService(store *MatchStore, damage DamageResolver, settlement *SettlementService, policy EnginePolicy) *MoveService {
	return &MoveService{Store: store, Damage: damage, Settlement: settlement, Policy: policy}
}

// MoveResult reports what a submitted move did, including the settlement when
// the move knocked the opponent out.
type MoveResult struct {
	MatchID       string            `json:"match_id"`
	Actor         string            `json:"actor"`
	Damage        int               `json:"damage"`
	OpponentHP    int               `json:"opponent_hp"`
	NextTurnOwner string            `json:"next_turn_owner,omitempty"`
	Settlement    *SettlementResult `json:"settlement,omitempty"`
}

// SubmitMove resolves one attack by actor. The damage contribution comes from
// the actor's persisted roster snapshot, never from the client. A move that
// races with a timeout forfeiture gets ErrMatchNotActive ("match already
// ended"), which handlers surface as an expected outcome, not a bug.
func (s *MoveService) SubmitMove(matchID, actor string) (*MoveResult, error) {
	m, err := s.Store.LoadActive(matchID)
	if err != nil {
		return nil, err
	}
	if !m.HasParticipant(actor) {
		return nil, ErrMatchNotFound
	}
	if m.CurrentTurnOwner != actor {
		return nil, ErrNotYourTurn
	}

	damage, err := s.Damage.Contribution(actor)
	if err != nil {
		return nil, err
	}

	opponent := m.Opponent(actor)
	var result MoveResult
	var settled *SettlementResult

	_, err = s.Store.TryAdvance(matchID, PreconditionOf(m), func(tx *gorm.DB, locked *models.Match) ([]models.MoveRecord, error) {
		if locked.CurrentTurnOwner != actor {
			return nil, ErrNotYourTurn
		}

		applyDamage(locked, opponent, damage)
		result = MoveResult{
			MatchID:    locked.ID,
			Actor:      actor,
			Damage:     damage,
			OpponentHP: locked.HP(opponent),
		}

		if locked.HP(opponent) <= 0 {
			res, err := s.Settlement.settleLocked(tx, locked, actor, opponent, models.ReasonKnockout)
			if err != nil {
				return nil, err
			}
			settled = res
			result.Settlement = res
		} else {
			rotateTurn(locked, opponent)
			result.NextTurnOwner = opponent
		}

		return []models.MoveRecord{{
			Actor:      actor,
			ActionType: models.ActionMove,
			Damage:     damage,
			StateJSON:  turnSnapshot(locked),
		}}, nil
	})
	if err != nil {
		// The turn moved between read and write: from the player's side this
		// is the same "too slow" outcome as a finished match.
		if errors.Is(err, ErrTurnConflict) {
			return nil, ErrNotYourTurn
		}
		return nil, err
	}

	s.Settlement.AfterSettle(settled)
	return &result, nil
}

func applyDamage(m *models.Match, target string, damage int) {
	if target == m.PlayerA {
		m.PlayerAHP -= damage
		if m.PlayerAHP < 0 {
			m.PlayerAHP = 0
		}
	} else {
		m.PlayerBHP -= damage
		if m.PlayerBHP < 0 {
			m.PlayerBHP = 0
		}
	}
}

// turnSnapshot renders the post-move state stored alongside each log entry.
func turnSnapshot(m *models.Match) string {
	b, _ := json.Marshal(map[string]interface{}{
		"status":             m.Status,
		"current_turn_owner": m.CurrentTurnOwner,
		"player_a_hp":        m.PlayerAHP,
		"player_b_hp":        m.PlayerBHP,
		"timeout_warnings_a": m.TimeoutWarningsA,
		"timeout_warnings_b": m.TimeoutWarningsB,
	})
	return string(b)
}
