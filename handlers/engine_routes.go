// handlers/engine_routes.go
package handlers

import (
	"errors"

	"card-battle-engine/middleware"
	"card-battle-engine/models"
	"card-battle-engine/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupEngineRoutes(
	app *fiber.App,
	intake *services.IntakeService,
	store *services.MatchStore,
	sweeper *services.SweeperService,
	moves *services.MoveService,
	balance *services.BalanceService,
) {
	// 🔧 Collaborator surface — matchmaking and the external sweep trigger.
	// Gateway auth is global; these carry no end-user context.
	app.Post("/engine/matches", func(c *fiber.Ctx) error {
		var in services.MatchIntake
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
		}

		m, err := intake.Accept(in)
		if err != nil {
			if errors.Is(err, services.ErrStoreUnavailable) {
				return storeUnavailable(c, err)
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	})

	app.Post("/engine/matches/:id/check", func(c *fiber.Ctx) error {
		out := sweeper.CheckOne(c.Params("id"))
		if out.Status == services.SweepFailed {
			return c.Status(fiber.StatusServiceUnavailable).JSON(out)
		}
		return c.JSON(out)
	})

	app.Post("/engine/sweep", func(c *fiber.Ctx) error {
		outcomes, err := sweeper.SweepAll()
		if err != nil {
			return storeUnavailable(c, err)
		}
		return c.JSON(fiber.Map{
			"checked":  len(outcomes),
			"outcomes": outcomes,
		})
	})

	// 🔓 Read surfaces
	app.Get("/matches/:id", func(c *fiber.Ctx) error {
		m, err := store.Load(c.Params("id"))
		if err != nil {
			return engineError(c, err)
		}
		log, err := store.MoveLog(m.ID)
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(fiber.Map{"match": m, "move_log": log})
	})

	app.Get("/matches/:id/result", func(c *fiber.Ctx) error {
		m, err := store.Load(c.Params("id"))
		if err != nil {
			return engineError(c, err)
		}
		if !m.Terminal() {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"settled": false,
				"status":  m.Status,
			})
		}
		return c.JSON(fiber.Map{
			"settled":       true,
			"status":        m.Status,
			"winner":        m.Winner,
			"loser":         m.Loser,
			"rating_delta":  m.RatingDelta,
			"winner_reward": m.WinnerReward,
			"reason":        m.SettleReason,
			"finished_at":   m.FinishedAt,
		})
	})

	app.Get("/players/:id/balance", func(c *fiber.Ctx) error {
		amount, err := balance.BalanceOf(c.Params("id"))
		if err != nil {
			return storeUnavailable(c, err)
		}
		return c.JSON(fiber.Map{"user_id": c.Params("id"), "balance": amount})
	})

	app.Get("/players/:id/rating", func(c *fiber.Ctx) error {
		var rating models.PlayerRating
		err := store.DB.Where("external_user_id = ?", c.Params("id")).First(&rating).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// no rating row = never settled a match = default rating
			return c.JSON(fiber.Map{
				"external_user_id": c.Params("id"),
				"rating":           models.DefaultRating,
				"wins":             0,
				"losses":           0,
			})
		}
		if err != nil {
			// a store outage must never read as "never played"
			return storeUnavailable(c, err)
		}
		return c.JSON(rating)
	})

	// 🔐 Player surface — requires user context from the gateway
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/matches/:id/moves", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
		}

		result, err := moves.SubmitMove(c.Params("id"), userID)
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(result)
	})
}

// engineError maps the engine's error taxonomy onto HTTP statuses. The
// "already ended" cases are deliberate, specific responses: losing a race
// against a timeout forfeiture is expected player behavior, not a bug.
func engineError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrMatchNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "match not found"})
	case errors.Is(err, services.ErrMatchNotActive), errors.Is(err, services.ErrAlreadySettled):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "match already ended"})
	case errors.Is(err, services.ErrNotYourTurn):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "not your turn"})
	case errors.Is(err, services.ErrTurnConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "match state changed, retry"})
	case errors.Is(err, services.ErrStoreUnavailable):
		return storeUnavailable(c, err)
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

func storeUnavailable(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error":   "match store unavailable",
		"details": err.Error(),
	})
}
