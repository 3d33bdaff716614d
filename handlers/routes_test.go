package handlers_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"coin-miniapp-system/handlers"
	"coin-miniapp-system/middleware"
	"coin-miniapp-system/services"
	"coin-miniapp-system/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	testBotToken      = "12345:TEST-TOKEN"
	testWebhookSecret = "hook-secret"
)

var app *fiber.App

func TestMain(m *testing.M) {
	os.Setenv("TELEGRAM_BOT_TOKEN", testBotToken)
	os.Setenv("TELEGRAM_WEBHOOK_SECRET", testWebhookSecret)

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{TranslateError: true})
	if err != nil {
		panic("failed to initialize test database")
	}
	if err := storage.Migrate(db); err != nil {
		panic("failed to migrate test database: " + err.Error())
	}

	referralService := services.NewReferralService(db, services.ReferralRewards{
		ReferrerCoins:   5000,
		ReferredCoins:   2500,
		ReferrerTickets: 1,
	})
	userService := services.NewUserService(db, referralService)
	taskService := services.NewTaskService(db, referralService)
	streakService := services.NewStreakService(db)
	lbService := services.NewLeaderboardService(db)
	clanService := services.NewClanService(db)
	paymentService := services.NewPaymentService(db, services.PaymentConfig{
		SubscriptionPriceTON: decimal.NewFromFloat(1.5),
		SubscriptionDays:     30,
		InvoiceTTL:           30 * time.Minute,
	})
	miningService := services.NewMiningService(db, services.MiningConfig{
		RatePerHour: 600,
		CapHours:    8,
	})

	// Same registration order as main.go
	app = fiber.New()
	handlers.SetupUserRoutes(app, userService, referralService, streakService)
	handlers.SetupEconomyRoutes(app, userService, taskService, lbService, miningService)
	handlers.SetupClanRoutes(app, userService, clanService, lbService)
	handlers.SetupPaymentRoutes(app, userService, paymentService)
	handlers.SetupWebhookRoutes(app)
	app.Get("/metrics", middleware.MetricsHandler())
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	os.Exit(m.Run())
}

// signedInitData builds init data the way the Telegram client does.
func signedInitData(telegramID int64, username string) string {
	values := url.Values{}
	values.Set("user", fmt.Sprintf(`{"id":%d,"username":%q,"first_name":"Test"}`, telegramID, username))
	values.Set("auth_date", fmt.Sprintf("%d", time.Now().Unix()))

	pairs := make([]string, 0, len(values))
	for key := range values {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(testBotToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))

	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}

func doRequest(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req, 5000)
	assert.NoError(t, err)
	return resp
}

func TestPublicRoutesNeedNoAuth(t *testing.T) {
	for _, path := range []string{"/leaderboard", "/clans/leaderboard", "/courses", "/healthz", "/metrics"} {
		resp := doRequest(t, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode, "GET %s should be public", path)
	}
}

func TestSecuredRoutesRejectMissingInitData(t *testing.T) {
	requests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/user/me"},
		{http.MethodPost, "/user/signup"},
		{http.MethodGet, "/leaderboard/me"},
		{http.MethodGet, "/tasks"},
		{http.MethodPost, "/mining/start"},
		{http.MethodPost, "/clans"},
		{http.MethodPost, "/payments/invoice"},
	}
	for _, r := range requests {
		resp := doRequest(t, httptest.NewRequest(r.method, r.path, nil))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s without init data", r.method, r.path)
	}
}

func TestSignupThenMeWithInitData(t *testing.T) {
	initData := signedInitData(900001, "route_tester")

	req := httptest.NewRequest(http.MethodPost, "/user/signup", nil)
	req.Header.Set("X-Telegram-Init-Data", initData)
	resp := doRequest(t, req)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/user/me", nil)
	req.Header.Set("X-Telegram-Init-Data", initData)
	resp = doRequest(t, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var user struct {
		Username string `json:"username"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
	assert.Equal(t, "route_tester", user.Username)
}

func TestSecuredRoutesRejectBadSignature(t *testing.T) {
	initData := signedInitData(900002, "tamper_tester")
	tampered := strings.Replace(initData, "auth_date=", "auth_date=9", 1)

	req := httptest.NewRequest(http.MethodGet, "/user/me", nil)
	req.Header.Set("X-Telegram-Init-Data", tampered)
	resp := doRequest(t, req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebhookAuthenticatesBySecretTokenAlone(t *testing.T) {
	// An update without a message is acknowledged and triggers no reply
	body, _ := json.Marshal(map[string]interface{}{"update_id": 1})

	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", testWebhookSecret)
	resp := doRequest(t, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebhookRejectsBadSecretToken(t *testing.T) {
	body, _ := json.Marshal(map[string]interface{}{"update_id": 2})

	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "wrong")
	resp := doRequest(t, req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/webhook/telegram", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp = doRequest(t, req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
