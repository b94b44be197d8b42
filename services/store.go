package services

import (
	"errors"
	"fmt"

	"card-battle-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MatchStore is the single source of truth for match state. Every mutation of
// a match goes through TryAdvance so that two concurrent callers (a player's
// move and a timeout sweep) can never both believe they are the one allowed
// to advance the match.
type MatchStore struct {
	DB *gorm.DB
}

func NewMatchStore(db *gorm.DB) *MatchStore {
	return &MatchStore{DB: db}
}

// TurnPrecondition is the slice of match state a caller observed when it
// decided what mutation to apply. TryAdvance re-checks it under the row lock
// and refuses the write when any field moved in the meantime.
type TurnPrecondition struct {
	TurnOwner string
	WarningsA int
	WarningsB int
}

// PreconditionOf snapshots the concurrency-relevant fields of a match.
func PreconditionOf(m *models.Match) TurnPrecondition {
	return TurnPrecondition{
		TurnOwner: m.CurrentTurnOwner,
		WarningsA: m.TimeoutWarningsA,
		WarningsB: m.TimeoutWarningsB,
	}
}

// Load fetches a match regardless of status.
func (s *MatchStore) Load(matchID string) (*models.Match, error) {
	var m models.Match
	if err := s.DB.First(&m, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &m, nil
}

// LoadActive fetches a match only if it is still active. A terminal match is
// not eligible for further mutation through this interface.
func (s *MatchStore) LoadActive(matchID string) (*models.Match, error) {
	m, err := s.Load(matchID)
	if err != nil {
		return nil, err
	}
	if m.Terminal() {
		return nil, ErrMatchNotActive
	}
	return m, nil
}

// ListActive returns all matches still in play, oldest turn clock first so a
// bounded sweep resolves the most overdue matches before anything else.
func (s *MatchStore) ListActive() ([]models.Match, error) {
	var matches []models.Match
	if err := s.DB.Where("status = ?", models.MatchStatusActive).
		Order("turn_started_at ASC NULLS LAST").
		Find(&matches).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return matches, nil
}

// MoveLog returns the match's move log in commit order.
func (s *MatchStore) MoveLog(matchID string) ([]models.MoveRecord, error) {
	var moves []models.MoveRecord
	if err := s.DB.Where("match_id = ?", matchID).
		Order("turn_number ASC").
		Find(&moves).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return moves, nil
}

// TryAdvance applies mutate to the match inside one transaction, holding the
// row lock for the duration, but only if the caller's precondition snapshot
// still describes the row. The mutation may touch other rows through tx
// (ratings, claims, balances) — everything commits or nothing does. Move
// records returned by mutate are appended to the log in the same commit, so
// log order matches commit order.
//
// Returns ErrTurnConflict when the precondition no longer holds: the caller
// must re-read and recompute, never blindly reapply.
func (s *MatchStore) TryAdvance(matchID string, pre TurnPrecondition, mutate func(tx *gorm.DB, m *models.Match) ([]models.MoveRecord, error)) (*models.Match, error) {
	var out *models.Match
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var m models.Match
		if err := s.lockClause(tx).First(&m, "id = ?", matchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		// Flipped to terminal between the caller's read and this lock
		// (e.g., the human moved, or a concurrent sweep forfeited).
		if m.Terminal() {
			return ErrMatchNotActive
		}
		if PreconditionOf(&m) != pre {
			return ErrTurnConflict
		}

		moves, err := mutate(tx, &m)
		if err != nil {
			return err
		}

		if len(moves) > 0 {
			var logged int64
			if err := tx.Model(&models.MoveRecord{}).
				Where("match_id = ?", m.ID).
				Count(&logged).Error; err != nil {
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			for i := range moves {
				if moves[i].ID == "" {
					moves[i].ID = uuid.NewString()
				}
				moves[i].MatchID = m.ID
				moves[i].TurnNumber = int(logged) + i + 1
			}
			if err := tx.Create(&moves).Error; err != nil {
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}

		if err := tx.Save(&m).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		out = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// lockClause adds SELECT ... FOR UPDATE on engines that support it. SQLite
// (used by the test suite) serializes writers on its own and rejects the
// clause, so the precondition check carries the guarantee there.
func (s *MatchStore) lockClause(tx *gorm.DB) *gorm.DB {
	if s.DB.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
