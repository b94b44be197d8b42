package services

import (
	"fmt"
	"testing"
	"time"

	"card-battle-engine/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory sqlite database with the engine schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Match{},
		&models.MoveRecord{},
		&models.RewardClaim{},
		&models.PlayerRating{},
		&models.BalanceMirror{},
		&models.RosterCard{},
	))
	return db
}

type testEngine struct {
	db         *gorm.DB
	store      *MatchStore
	claims     *ClaimService
	balance    *BalanceService
	settlement *SettlementService
	sweeper    *SweeperService
	moves      *MoveService
	policy     EnginePolicy
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	db := newTestDB(t)
	policy := DefaultPolicy

	store := NewMatchStore(db)
	claims := NewClaimService(db)
	balance := NewBalanceService(db, claims)
	settlement := NewSettlementService(store, balance, policy, nil)
	sweeper := NewSweeperService(store, settlement, policy)
	moves := NewMoveService(store, NewRosterDamageResolver(db), settlement, policy)

	return &testEngine{
		db:         db,
		store:      store,
		claims:     claims,
		balance:    balance,
		settlement: settlement,
		sweeper:    sweeper,
		moves:      moves,
		policy:     policy,
	}
}

// seedMatch creates an active match with sane defaults; tweak mutates it
// before insert.
func (e *testEngine) seedMatch(t *testing.T, tweak func(*models.Match)) *models.Match {
	t.Helper()
	now := time.Now()
	m := models.Match{
		ID:                 uuid.NewString(),
		PlayerA:            "p1",
		PlayerB:            "p2",
		Status:             models.MatchStatusActive,
		CurrentTurnOwner:   "p1",
		TurnStartedAt:      &now,
		TurnTimeoutSeconds: 30,
		PlayerAHP:          100,
		PlayerBHP:          100,
		EntryFee:           10,
	}
	if tweak != nil {
		tweak(&m)
	}
	require.NoError(t, e.db.Create(&m).Error)
	return &m
}

func (e *testEngine) reload(t *testing.T, matchID string) *models.Match {
	t.Helper()
	m, err := e.store.Load(matchID)
	require.NoError(t, err)
	return m
}

func secondsAgo(n int) *time.Time {
	ts := time.Now().Add(-time.Duration(n) * time.Second)
	return &ts
}
