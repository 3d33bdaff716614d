package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coin-miniapp-system/handlers"
	"coin-miniapp-system/middleware"
	"coin-miniapp-system/services"
	"coin-miniapp-system/storage"
	"coin-miniapp-system/utils"
	"coin-miniapp-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB, emblem uploads are the largest payload
	})

	app.Use(middleware.MetricsMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: utils.Getenv("ALLOWED_ORIGINS", "*"),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Telegram-Init-Data",
	}))

	dsn := utils.MustGetenv("DATABASE_URL")
	db, err := storage.Connect(dsn)
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := utils.InitMediaStore(); err != nil {
		log.Fatal("failed to initialize media store:", err)
	}

	referralService := services.NewReferralService(db, services.ReferralRewardsFromEnv())
	userService := services.NewUserService(db, referralService)
	taskService := services.NewTaskService(db, referralService)
	streakService := services.NewStreakService(db)
	leaderboardService := services.NewLeaderboardService(db)
	clanService := services.NewClanService(db)
	paymentService := services.NewPaymentService(db, services.PaymentConfigFromEnv())
	miningService := services.NewMiningService(db, services.MiningConfigFromEnv())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tonClient := workers.NewTonClient(paymentService)
	go workers.PollPayments(ctx, tonClient, 10*time.Second)

	services.StartMaintenanceScheduler(referralService, paymentService, streakService)

	handlers.SetupUserRoutes(app, userService, referralService, streakService)
	handlers.SetupEconomyRoutes(app, userService, taskService, leaderboardService, miningService)
	handlers.SetupClanRoutes(app, userService, clanService, leaderboardService)
	handlers.SetupPaymentRoutes(app, userService, paymentService)
	handlers.SetupWebhookRoutes(app)

	app.Get("/metrics", middleware.MetricsHandler())
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	addr := ":" + utils.Getenv("PORT", "8080")
	go func() {
		if err := app.Listen(addr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on %s", addr)
	log.Println("✅ TON payment watcher running (every 10s)")
	log.Println("✅ Maintenance scheduler running")

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
