package services

import (
	"testing"

	"card-battle-engine/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLoadActiveMissingMatch(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.store.LoadActive("nope")
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestLoadActiveRejectsTerminalMatch(t *testing.T) {
	e := newTestEngine(t)
	m := e.seedMatch(t, func(m *models.Match) {
		m.Status = models.MatchStatusCompleted
	})

	_, err := e.store.LoadActive(m.ID)
	assert.ErrorIs(t, err, ErrMatchNotActive)

	// still readable as history
	loaded, err := e.store.Load(m.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Terminal())
}

func TestTryAdvanceAppliesMutationAndLog(t *testing.T) {
	e := newTestEngine(t)
	m := e.seedMatch(t, nil)

	updated, err := e.store.TryAdvance(m.ID, PreconditionOf(m), func(tx *gorm.DB, locked *models.Match) ([]models.MoveRecord, error) {
		rotateTurn(locked, "p2")
		return []models.MoveRecord{{
			Actor:      "p1",
			ActionType: models.ActionMove,
			Damage:     7,
		}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "p2", updated.CurrentTurnOwner)

	log, err := e.store.MoveLog(m.ID)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, 1, log[0].TurnNumber)
	assert.Equal(t, "p1", log[0].Actor)
}

func TestTryAdvanceDetectsStaleTurnOwner(t *testing.T) {
	e := newTestEngine(t)
	m := e.seedMatch(t, nil)
	stale := PreconditionOf(m)

	// someone else rotates the turn first
	_, err := e.store.TryAdvance(m.ID, stale, func(tx *gorm.DB, locked *models.Match) ([]models.MoveRecord, error) {
		rotateTurn(locked, "p2")
		return nil, nil
	})
	require.NoError(t, err)

	// the stale caller must not be able to reapply
	_, err = e.store.TryAdvance(m.ID, stale, func(tx *gorm.DB, locked *models.Match) ([]models.MoveRecord, error) {
		t.Fatal("mutation must not run on a stale precondition")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrTurnConflict)
}

func TestTryAdvanceDetectsStaleWarningCount(t *testing.T) {
	e := newTestEngine(t)
	m := e.seedMatch(t, nil)
	stale := PreconditionOf(m)

	_, err := e.store.TryAdvance(m.ID, stale, func(tx *gorm.DB, locked *models.Match) ([]models.MoveRecord, error) {
		incrementWarning(locked, "p1")
		return nil, nil
	})
	require.NoError(t, err)

	_, err = e.store.TryAdvance(m.ID, stale, func(tx *gorm.DB, locked *models.Match) ([]models.MoveRecord, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrTurnConflict)
}

func TestTryAdvanceRefusesTerminalMatch(t *testing.T) {
	e := newTestEngine(t)
	m := e.seedMatch(t, nil)
	pre := PreconditionOf(m)

	require.NoError(t, e.db.Model(&models.Match{}).
		Where("id = ?", m.ID).
		Update("status", models.MatchStatusCompleted).Error)

	_, err := e.store.TryAdvance(m.ID, pre, func(tx *gorm.DB, locked *models.Match) ([]models.MoveRecord, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrMatchNotActive)
}

func TestTryAdvanceRollsBackOnMutationError(t *testing.T) {
	e := newTestEngine(t)
	m := e.seedMatch(t, nil)

	_, err := e.store.TryAdvance(m.ID, PreconditionOf(m), func(tx *gorm.DB, locked *models.Match) ([]models.MoveRecord, error) {
		rotateTurn(locked, "p2")
		return nil, ErrStoreUnavailable
	})
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	// rotation must not have leaked
	assert.Equal(t, "p1", e.reload(t, m.ID).CurrentTurnOwner)
}

func TestMoveLogOrderFollowsCommits(t *testing.T) {
	e := newTestEngine(t)
	m := e.seedMatch(t, nil)

	actors := []string{"p1", "p2", "p1"}
	for _, actor := range actors {
		cur := e.reload(t, m.ID)
		_, err := e.store.TryAdvance(m.ID, PreconditionOf(cur), func(tx *gorm.DB, locked *models.Match) ([]models.MoveRecord, error) {
			rotateTurn(locked, locked.Opponent(locked.CurrentTurnOwner))
			return []models.MoveRecord{{Actor: actor, ActionType: models.ActionMove}}, nil
		})
		require.NoError(t, err)
	}

	log, err := e.store.MoveLog(m.ID)
	require.NoError(t, err)
	require.Len(t, log, 3)
	for i, rec := range log {
		assert.Equal(t, i+1, rec.TurnNumber)
		assert.Equal(t, actors[i], rec.Actor)
	}
}
