// handlers/clan.go
package handlers

import (
	"errors"
	"path/filepath"
	"strconv"

	"coin-miniapp-system/middleware"
	"coin-miniapp-system/services"
	"coin-miniapp-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxEmblemBytes = 2 << 20 // 2MB

func SetupClanRoutes(app *fiber.App, users *services.UserService, clans *services.ClanService, leaderboard *services.LeaderboardService) {
	// 🔓 Public clan ranking
	app.Get("/clans/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		standings, err := leaderboard.TopClans(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load clan leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(standings)
	})

	// 🔐 /clans/leaderboard shares the /clans prefix, so auth goes on each
	// secured route rather than a prefix group.
	auth := middleware.TelegramAuthMiddleware()

	app.Post("/clans", auth, func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}

		var req struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		clan, err := clans.CreateClan(user, req.Name)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrClanNameTaken):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "clan name already taken"})
			case errors.Is(err, services.ErrAlreadyInClan):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already in a clan"})
			default:
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
		}
		return c.Status(fiber.StatusCreated).JSON(clan)
	})

	app.Get("/clans/:slug", auth, func(c *fiber.Ctx) error {
		clan, err := clans.GetBySlug(c.Params("slug"))
		if err != nil {
			if errors.Is(err, services.ErrClanNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "clan not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		members, err := clans.Members(clan.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"clan": clan, "members": members})
	})

	app.Post("/clans/:slug/join", auth, func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}
		clan, err := clans.Join(user, c.Params("slug"))
		if err != nil {
			switch {
			case errors.Is(err, services.ErrClanNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "clan not found"})
			case errors.Is(err, services.ErrAlreadyInClan):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already in a clan"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "join failed", "cause": err.Error()})
			}
		}
		return c.JSON(clan)
	})

	app.Post("/clans/leave", auth, func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}
		if err := clans.Leave(user); err != nil {
			switch {
			case errors.Is(err, services.ErrNotInClan):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "not in a clan"})
			case errors.Is(err, services.ErrClanNotEmpty):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "transfer or disband first"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "leave failed", "cause": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"message": "left clan"})
	})

	app.Post("/clans/emblem", auth, func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}
		if user.ClanID == nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "not in a clan"})
		}

		fileHeader, err := c.FormFile("emblem")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "emblem file is required"})
		}

		key := "emblems/" + uuid.NewString() + filepath.Ext(fileHeader.Filename)
		url, err := utils.UploadImage(fileHeader, key, maxEmblemBytes)
		if err != nil {
			switch {
			case errors.Is(err, utils.ErrMediaTooLarge):
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "emblem is too large"})
			case errors.Is(err, utils.ErrMediaNotImage):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "emblem must be an image"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "upload failed",
					"cause": err.Error(),
				})
			}
		}

		target, err := clans.GetByID(*user.ClanID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		if target.OwnerID != user.ID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "only the owner can set the emblem"})
		}
		if err := clans.SetEmblem(target, url); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save emblem", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"emblem_url": url})
	})

	// PvP battles
	app.Post("/battles", auth, func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}

		var req struct {
			Opponent string `json:"opponent"`
			Wager    int64  `json:"wager"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		opponent, err := users.GetByUsername(req.Opponent)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "opponent not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}

		battle, err := clans.Challenge(user, opponent, req.Wager)
		if err != nil {
			if errors.Is(err, services.ErrInsufficientBet) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "not enough coins for the wager"})
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(battle)
	})

	app.Get("/battles", auth, func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		battles, err := clans.BattlesFor(user.ID, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		return c.JSON(battles)
	})

	app.Post("/battles/:id/accept", auth, func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}
		battle, err := clans.Accept(c.Params("id"), user.ID)
		if err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "battle not found"})
			case errors.Is(err, services.ErrBattleNotPending):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "battle is no longer pending"})
			case errors.Is(err, services.ErrInsufficientBet):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "a side cannot cover the wager"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "battle failed", "cause": err.Error()})
			}
		}
		return c.JSON(battle)
	})

	app.Post("/battles/:id/decline", auth, func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}
		if err := clans.Decline(c.Params("id"), user.ID); err != nil {
			if errors.Is(err, services.ErrBattleNotPending) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "battle is no longer pending"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "decline failed", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "battle declined"})
	})
}
