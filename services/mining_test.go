package services_test

import (
	"testing"
	"time"

	"coin-miniapp-system/models"
	"coin-miniapp-system/services"

	"github.com/stretchr/testify/assert"
)

func backdateMiningStart(t *testing.T, userID string, ago time.Duration) {
	t.Helper()
	ts := time.Now().UTC().Add(-ago)
	assert.NoError(t, db.Model(&models.MiningSession{}).
		Where("user_id = ? AND claimed_at IS NULL", userID).
		Update("started_at", ts).Error)
}

func TestMiningStartOnlyOnce(t *testing.T) {
	user := createUser(t, "miner_once")

	session, err := miningService.Start(user)
	assert.NoError(t, err)
	assert.Equal(t, int64(600), session.RatePerHour)

	_, err = miningService.Start(user)
	assert.ErrorIs(t, err, services.ErrMiningActive)
}

func TestMiningClaimCreditsAccrued(t *testing.T) {
	user := createUser(t, "miner_claim")

	_, err := miningService.Start(user)
	assert.NoError(t, err)
	backdateMiningStart(t, user.ID, 2*time.Hour)

	outcome, err := miningService.Claim(user.ID)
	assert.NoError(t, err)
	// 600/h over 2h, allow a few seconds of test runtime drift
	assert.InDelta(t, 1200, float64(outcome.Coins), 2)
	assert.Equal(t, outcome.Coins, reloadUser(t, user.ID).Coins)

	// Session is closed
	_, err = miningService.Claim(user.ID)
	assert.ErrorIs(t, err, services.ErrNoMiningActive)
}

func TestMiningAccrualCapped(t *testing.T) {
	user := createUser(t, "miner_capped")

	_, err := miningService.Start(user)
	assert.NoError(t, err)
	backdateMiningStart(t, user.ID, 20*time.Hour)

	status, err := miningService.Status(user.ID)
	assert.NoError(t, err)
	assert.True(t, status.Active)
	assert.True(t, status.Capped)
	assert.Equal(t, int64(600*8), status.Accrued)

	outcome, err := miningService.Claim(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(600*8), outcome.Coins)
}

func TestMiningPremiumDoublesRate(t *testing.T) {
	user := createUser(t, "miner_premium")
	until := time.Now().Add(24 * time.Hour)
	assert.NoError(t, db.Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("premium_until", until).Error)

	session, err := miningService.Start(reloadUser(t, user.ID))
	assert.NoError(t, err)
	assert.Equal(t, int64(1200), session.RatePerHour)
}

func TestMiningStatusInactive(t *testing.T) {
	user := createUser(t, "miner_idle")

	status, err := miningService.Status(user.ID)
	assert.NoError(t, err)
	assert.False(t, status.Active)
	assert.Equal(t, int64(0), status.Accrued)
}
