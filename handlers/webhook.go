// handlers/webhook.go
package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"coin-miniapp-system/middleware"
	"coin-miniapp-system/services"
	"coin-miniapp-system/utils"

	"github.com/gofiber/fiber/v2"
)

// Update is the subset of the Telegram Bot API update we act on.
type Update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
		} `json:"from"`
		Text string `json:"text"`
	} `json:"message"`
}

func SetupWebhookRoutes(app *fiber.App) {
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	appURL := utils.Getenv("MINIAPP_URL", "https://t.me/example_bot/app")

	app.Post("/webhook/telegram", middleware.WebhookSecretMiddleware(), func(c *fiber.Ctx) error {
		var update Update
		if err := c.BodyParser(&update); err != nil {
			// Telegram retries on non-200; a malformed update is not worth retrying
			log.Printf("⚠️  Webhook: malformed update: %v", err)
			return c.SendStatus(fiber.StatusOK)
		}

		if update.Message == nil || !strings.HasPrefix(update.Message.Text, "/start") {
			return c.SendStatus(fiber.StatusOK)
		}

		// "/start <code>" carries the inviter's referral code; the Mini App
		// link forwards it as startapp so signup can settle it.
		link := appURL
		fields := strings.Fields(update.Message.Text)
		if len(fields) > 1 {
			if code := services.NormalizeUsername(fields[1]); code != "" {
				link = fmt.Sprintf("%s?startapp=%s", appURL, code)
			}
		}

		text := fmt.Sprintf("Welcome! Open the app to start earning: %s", link)
		if err := sendMessage(botToken, update.Message.Chat.ID, text); err != nil {
			log.Printf("❌ Webhook: sendMessage failed: %v", err)
		}
		return c.SendStatus(fiber.StatusOK)
	})
}

func sendMessage(botToken string, chatID int64, text string) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	})

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", botToken)
	resp, err := utils.HTTPClient.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}
