// middleware/telegram.go
package middleware

import (
	"log"
	"os"
	"strings"
	"time"

	"coin-miniapp-system/utils"

	"github.com/gofiber/fiber/v2"
)

// TelegramAuthMiddleware validates the Mini App init data accompanying every
// user request and attaches the verified identity to the context. Clients
// send the raw init data in the X-Telegram-Init-Data header (or as
// "Authorization: tma <initData>").
func TelegramAuthMiddleware() fiber.Handler {
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		log.Fatal("❌ TELEGRAM_BOT_TOKEN is not set, cannot verify Mini App requests")
	}
	maxAge := time.Duration(utils.GetenvInt64("INIT_DATA_MAX_AGE_HOURS", 24)) * time.Hour

	return func(c *fiber.Ctx) error {
		raw := c.Get("X-Telegram-Init-Data")
		if raw == "" {
			if auth := c.Get("Authorization"); strings.HasPrefix(auth, "tma ") {
				raw = strings.TrimPrefix(auth, "tma ")
			}
		}
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing Telegram init data",
			})
		}

		values, err := utils.VerifyInitData(raw, botToken, maxAge)
		if err != nil {
			log.Printf("🚫 [TG_AUTH] Rejected init data for %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid Telegram init data",
			})
		}

		tgUser, err := utils.InitDataUser(values)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "init data has no valid user",
			})
		}

		c.Locals("telegram_user", tgUser)
		c.Locals("telegram_id", tgUser.ID)
		c.Locals("start_param", utils.StartParam(values))

		return c.Next()
	}
}

// WebhookSecretMiddleware guards the bot webhook with the secret token
// registered at setWebhook time.
func WebhookSecretMiddleware() fiber.Handler {
	secret := os.Getenv("TELEGRAM_WEBHOOK_SECRET")
	if secret == "" {
		log.Fatal("❌ TELEGRAM_WEBHOOK_SECRET is not set, webhook cannot be authenticated")
	}

	return func(c *fiber.Ctx) error {
		if c.Get("X-Telegram-Bot-Api-Secret-Token") != secret {
			log.Printf("🚫 [WEBHOOK] Bad secret token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid webhook secret",
			})
		}
		return c.Next()
	}
}
