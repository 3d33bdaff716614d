// handlers/economy.go
package handlers

import (
	"errors"
	"strconv"

	"coin-miniapp-system/middleware"
	"coin-miniapp-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupEconomyRoutes(app *fiber.App, users *services.UserService, tasks *services.TaskService, leaderboard *services.LeaderboardService, mining *services.MiningService) {
	// 🔓 Public: the leaderboard renders before auth completes
	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		entries, err := leaderboard.Top(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(entries)
	})

	// 🔐 Everything below needs verified init data; auth is attached per
	// prefix so the public routes above stay open.
	auth := middleware.TelegramAuthMiddleware()

	app.Get("/leaderboard/me", auth, func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}
		rank, err := leaderboard.RankOf(user)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to compute rank",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"rank":     rank,
			"username": user.Username,
			"coins":    user.Coins,
		})
	})

	taskRoutes := app.Group("/tasks", auth)

	taskRoutes.Get("/", func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}
		views, err := tasks.ListForUser(user)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load tasks",
				"cause": err.Error(),
			})
		}
		return c.JSON(views)
	})

	taskRoutes.Post("/:code/complete", func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}
		result, err := tasks.Complete(user, c.Params("code"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "task completion failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	// Mining REST API
	miningRoutes := app.Group("/mining", auth)

	miningRoutes.Post("/start", func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}
		session, err := mining.Start(user)
		if err != nil {
			if errors.Is(err, services.ErrMiningActive) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "mining already running"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to start mining",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(session)
	})

	miningRoutes.Get("/status", func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}
		status, err := mining.Status(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load mining status",
				"cause": err.Error(),
			})
		}
		return c.JSON(status)
	})

	miningRoutes.Post("/claim", func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}
		outcome, err := mining.Claim(user.ID)
		if err != nil {
			if errors.Is(err, services.ErrNoMiningActive) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "no mining session running"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "mining claim failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(outcome)
	})
}
