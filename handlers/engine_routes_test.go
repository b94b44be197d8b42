package handlers

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"card-battle-engine/models"
	"card-battle-engine/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
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

	policy := services.DefaultPolicy
	store := services.NewMatchStore(db)
	claims := services.NewClaimService(db)
	balance := services.NewBalanceService(db, claims)
	settlement := services.NewSettlementService(store, balance, policy, nil)
	sweeper := services.NewSweeperService(store, settlement, policy)
	moves := services.NewMoveService(store, services.NewRosterDamageResolver(db), settlement, policy)
	intake := services.NewIntakeService(db, policy)

	app := fiber.New()
	SetupEngineRoutes(app, intake, store, sweeper, moves, balance)
	return app, db
}

func TestRatingRouteDefaultsWhenNeverPlayed(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/players/p9/rating", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Rating int `json:"rating"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.DefaultRating, body.Rating)
}

func TestRatingRouteServesStoredRow(t *testing.T) {
	app, db := newTestApp(t)
	require.NoError(t, db.Create(&models.PlayerRating{
		ID:             uuid.NewString(),
		ExternalUserID: "p1",
		Rating:         1231,
		Wins:           2,
	}).Error)

	resp, err := app.Test(httptest.NewRequest("GET", "/players/p1/rating", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body models.PlayerRating
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1231, body.Rating)
}

func TestRatingRouteStoreOutageIsNotDefaulted(t *testing.T) {
	app, db := newTestApp(t)
	// a broken store must surface as 503, never as "never played, 1200"
	require.NoError(t, db.Migrator().DropTable(&models.PlayerRating{}))

	resp, err := app.Test(httptest.NewRequest("GET", "/players/p1/rating", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
