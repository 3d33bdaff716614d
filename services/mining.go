package services

import (
	"errors"
	"log"
	"time"

	"coin-miniapp-system/models"
	"coin-miniapp-system/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrMiningActive   = errors.New("mining session already running")
	ErrNoMiningActive = errors.New("no mining session running")
)

// MiningConfig is the accrual policy. Premium users mine at double rate.
type MiningConfig struct {
	RatePerHour int64
	CapHours    int64
}

func MiningConfigFromEnv() MiningConfig {
	return MiningConfig{
		RatePerHour: utils.GetenvInt64("MINING_RATE_PER_HOUR", 500),
		CapHours:    utils.GetenvInt64("MINING_CAP_HOURS", 8),
	}
}

type MiningService struct {
	DB     *gorm.DB
	Config MiningConfig
}

func NewMiningService(db *gorm.DB, config MiningConfig) *MiningService {
	return &MiningService{DB: db, Config: config}
}

// Start opens a mining session. One unclaimed session per user.
func (s *MiningService) Start(user *models.User) (*models.MiningSession, error) {
	var active int64
	if err := s.DB.Model(&models.MiningSession{}).
		Where("user_id = ? AND claimed_at IS NULL", user.ID).
		Count(&active).Error; err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, ErrMiningActive
	}

	rate := s.Config.RatePerHour
	if user.IsPremium(time.Now()) {
		rate *= 2
	}

	session := &models.MiningSession{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		RatePerHour: rate,
		StartedAt:   time.Now().UTC(),
	}
	if err := s.DB.Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// accrued computes the coins a session has earned so far, capped at the
// maximum accrual window.
func (s *MiningService) accrued(session *models.MiningSession, now time.Time) int64 {
	elapsed := now.Sub(session.StartedAt)
	if window := time.Duration(s.Config.CapHours) * time.Hour; elapsed > window {
		elapsed = window
	}
	if elapsed < 0 {
		return 0
	}
	return session.RatePerHour * int64(elapsed.Seconds()) / 3600
}

// MiningStatus is the live view of an open session.
type MiningStatus struct {
	Active      bool       `json:"active"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	RatePerHour int64      `json:"rate_per_hour,omitempty"`
	Accrued     int64      `json:"accrued"`
	Capped      bool       `json:"capped"`
}

// Status reports the open session's accrual without closing it.
func (s *MiningService) Status(userID string) (MiningStatus, error) {
	var session models.MiningSession
	err := s.DB.Where("user_id = ? AND claimed_at IS NULL", userID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return MiningStatus{Active: false}, nil
	}
	if err != nil {
		return MiningStatus{}, err
	}

	now := time.Now().UTC()
	return MiningStatus{
		Active:      true,
		StartedAt:   &session.StartedAt,
		RatePerHour: session.RatePerHour,
		Accrued:     s.accrued(&session, now),
		Capped:      now.Sub(session.StartedAt) >= time.Duration(s.Config.CapHours)*time.Hour,
	}, nil
}

// ClaimOutcome reports a closed session.
type ClaimOutcome struct {
	Coins   int64 `json:"coins"`
	Balance int64 `json:"balance"`
}

// Claim closes the open session and credits the accrued coins, in one
// transaction.
func (s *MiningService) Claim(userID string) (ClaimOutcome, error) {
	var outcome ClaimOutcome
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var session models.MiningSession
		if err := tx.Where("user_id = ? AND claimed_at IS NULL", userID).
			First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoMiningActive
			}
			return err
		}

		now := time.Now().UTC()
		mined := s.accrued(&session, now)

		session.ClaimedAt = &now
		session.CoinsMined = mined
		if err := tx.Save(&session).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("coins", gorm.Expr("coins + ?", mined)).Error; err != nil {
			return err
		}

		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}
		outcome = ClaimOutcome{Coins: mined, Balance: user.Coins}
		return nil
	})
	if err != nil {
		return ClaimOutcome{}, err
	}

	coinsMined.Add(float64(outcome.Coins))
	log.Printf("⛏️ Mining claim: user %s +%d coins", userID, outcome.Coins)
	return outcome, nil
}
