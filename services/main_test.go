package services_test

import (
	"os"
	"testing"
	"time"

	"coin-miniapp-system/models"
	"coin-miniapp-system/services"
	"coin-miniapp-system/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	db              *gorm.DB
	referralService *services.ReferralService
	userService     *services.UserService
	taskService     *services.TaskService
	streakService   *services.StreakService
	lbService       *services.LeaderboardService
	clanService     *services.ClanService
	paymentService  *services.PaymentService
	miningService   *services.MiningService
)

var testRewards = services.ReferralRewards{
	ReferrerCoins:   5000,
	ReferredCoins:   2500,
	ReferrerTickets: 1,
}

func TestMain(m *testing.M) {
	var err error
	db, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{TranslateError: true})
	if err != nil {
		panic("failed to initialize test database")
	}
	if err := storage.Migrate(db); err != nil {
		panic("failed to migrate test database: " + err.Error())
	}

	referralService = services.NewReferralService(db, testRewards)
	userService = services.NewUserService(db, referralService)
	taskService = services.NewTaskService(db, referralService)
	streakService = services.NewStreakService(db)
	lbService = services.NewLeaderboardService(db)
	clanService = services.NewClanService(db)
	paymentService = services.NewPaymentService(db, services.PaymentConfig{
		SubscriptionPriceTON: decimal.NewFromFloat(1.5),
		SubscriptionDays:     30,
		InvoiceTTL:           30 * time.Minute,
	})
	miningService = services.NewMiningService(db, services.MiningConfig{
		RatePerHour: 600,
		CapHours:    8,
	})

	os.Exit(m.Run())
}

var nextTelegramID int64 = 100000

func createUser(t *testing.T, username string) *models.User {
	t.Helper()
	nextTelegramID++
	user := &models.User{
		ID:         uuid.NewString(),
		TelegramID: nextTelegramID,
		Username:   username,
	}
	err := db.Create(user).Error
	assert.NoError(t, err, "failed to create user %s", username)
	return user
}

func reloadUser(t *testing.T, id string) *models.User {
	t.Helper()
	var user models.User
	err := db.Where("id = ?", id).First(&user).Error
	assert.NoError(t, err)
	return &user
}
