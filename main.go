package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"card-battle-engine/handlers"
	"card-battle-engine/middleware"
	"card-battle-engine/models"
	"card-battle-engine/services"
	"card-battle-engine/utils"
	"card-battle-engine/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, X-User-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	// Replay archiving is optional — only wire R2 when a bucket is configured.
	if os.Getenv("R2_BUCKET_NAME") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
	} else {
		log.Println("⚠️  R2_BUCKET_NAME not set — replay archiving disabled")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Match{},
		&models.MoveRecord{},
		&models.RewardClaim{},
		&models.PlayerRating{},
		&models.BalanceMirror{},
		&models.RosterCard{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	policy := services.PolicyFromEnv()

	store := services.NewMatchStore(db)
	claims := services.NewClaimService(db)
	balance := services.NewBalanceService(db, claims)

	var replays *services.ReplayService
	if utils.R2Enabled() {
		replays = services.NewReplayService(store)
	}

	settlement := services.NewSettlementService(store, balance, policy, replays)
	sweeper := services.NewSweeperService(store, settlement, policy)
	moves := services.NewMoveService(store, services.NewRosterDamageResolver(db), settlement, policy)
	intake := services.NewIntakeService(db, policy)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Reconcile the balance mirror against the wallet service (optional).
	balanceSyncClient := workers.NewBalanceSyncClient(db)
	go workers.PollBalances(ctx, balanceSyncClient, 10*time.Second)

	// Periodic timeout sweep — the cadence must undercut the smallest
	// configured turn timeout (see services.PolicyFromEnv).
	sweeper.StartSweepScheduler()

	// ✅ Setup routes — enforced Gateway auth on everything
	handlers.SetupEngineRoutes(app, intake, store, sweeper, moves, balance)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Engine running on http://localhost:5300")
	log.Printf("✅ Timeout sweep running (every %s, forfeit threshold %d)", policy.SweepInterval, policy.ForfeitThreshold)
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
