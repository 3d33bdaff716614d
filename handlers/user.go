// handlers/user.go
package handlers

import (
	"net/url"
	"strconv"

	"coin-miniapp-system/middleware"
	"coin-miniapp-system/services"
	"coin-miniapp-system/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, users *services.UserService, referrals *services.ReferralService, streaks *services.StreakService) {
	// 🔐 All user routes require verified Mini App init data. The group is
	// scoped to the /user prefix so routes registered elsewhere stay public.
	secured := app.Group("/user", middleware.TelegramAuthMiddleware())

	secured.Post("/signup", func(c *fiber.Ctx) error {
		tgUser := c.Locals("telegram_user").(utils.TelegramUser)

		// Referral code from the launch deep link; a web launch may instead
		// carry it in the query string.
		startParam, _ := c.Locals("start_param").(string)
		query := url.Values{}
		for key, value := range c.Queries() {
			query.Set(key, value)
		}
		code := services.CaptureReferralCode(startParam, query)

		result, err := users.Signup(tgUser, code)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "signup failed",
				"cause": err.Error(),
			})
		}

		status := fiber.StatusOK
		if result.Created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(result)
	})

	secured.Get("/me", func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}
		return c.JSON(user)
	})

	secured.Post("/streak/claim", func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}

		claim, err := streaks.Claim(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "streak claim failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(claim)
	})

	secured.Get("/referrals", func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}

		stats, err := referrals.GetStats(user.Username)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load referral stats",
				"cause": err.Error(),
			})
		}

		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		rows, err := referrals.ListReferrals(user.Username, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load referrals",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"stats":     stats,
			"referrals": rows,
		})
	})

	secured.Get("/referrals/progress", func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}

		count, err := referrals.VerifiedCount(user.Username)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to count referrals",
				"cause": err.Error(),
			})
		}

		task := c.Query("task", "invite a friend")
		return c.JSON(services.GetReferralTaskProgress(int(count), task))
	})
}
