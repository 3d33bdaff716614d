package handlers

import (
	"errors"

	"coin-miniapp-system/models"
	"coin-miniapp-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// currentUser resolves the account behind the verified Telegram identity on
// the request. When user is nil the error response has already been written;
// handlers should return the second value as-is.
func currentUser(c *fiber.Ctx, users *services.UserService) (*models.User, error) {
	telegramID, ok := c.Locals("telegram_id").(int64)
	if !ok || telegramID == 0 {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "no Telegram identity on request",
		})
	}

	user, err := users.GetByTelegramID(telegramID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "account not found, sign up first",
			})
		}
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "DB error resolving user",
			"cause": err.Error(),
		})
	}
	return user, nil
}
