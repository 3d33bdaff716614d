package services

import (
	"errors"
	"log"
	"time"

	"coin-miniapp-system/models"

	"gorm.io/gorm"
)

// Streak rewards by consecutive day, capped at the table's last entry.
var streakRewardTable = []int64{500, 1000, 1500, 2000, 3000, 4000, 5000}

func streakReward(day int) int64 {
	if day < 1 {
		day = 1
	}
	if day > len(streakRewardTable) {
		day = len(streakRewardTable)
	}
	return streakRewardTable[day-1]
}

type StreakService struct {
	DB *gorm.DB
}

func NewStreakService(db *gorm.DB) *StreakService {
	return &StreakService{DB: db}
}

// ClaimResult reports the outcome of a daily check-in.
type ClaimResult struct {
	Success bool  `json:"success"`
	Streak  int   `json:"streak"`
	Reward  int64 `json:"reward"`
	Coins   int64 `json:"coins"`
}

// Claim advances the daily login streak: same-day repeats are no-ops, a
// one-day gap continues the streak, anything longer resets it to 1.
// Day boundaries are UTC.
func (s *StreakService) Claim(userID string) (ClaimResult, error) {
	var result ClaimResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		today := now.Truncate(24 * time.Hour)

		if user.LastClaimAt != nil {
			last := user.LastClaimAt.UTC().Truncate(24 * time.Hour)
			switch {
			case last.Equal(today):
				result = ClaimResult{Success: false, Streak: user.CurrentStreak, Coins: user.Coins}
				return nil
			case last.Equal(today.AddDate(0, 0, -1)):
				user.CurrentStreak++
			default:
				user.CurrentStreak = 1
			}
		} else {
			user.CurrentStreak = 1
		}

		if user.CurrentStreak > user.LongestStreak {
			user.LongestStreak = user.CurrentStreak
		}

		reward := streakReward(user.CurrentStreak)
		user.Coins += reward
		user.LastClaimAt = &now

		if err := tx.Save(&user).Error; err != nil {
			return err
		}

		result = ClaimResult{Success: true, Streak: user.CurrentStreak, Reward: reward, Coins: user.Coins}
		log.Printf("🔥 Streak day %d for %s (+%d coins)", user.CurrentStreak, user.Username, reward)
		return nil
	})
	if err != nil {
		return ClaimResult{}, err
	}
	return result, nil
}

// ResetLapsed zeroes streak counters for users who missed two full days.
// Called from the scheduler so the profile view never shows a stale streak.
func (s *StreakService) ResetLapsed() (int64, error) {
	cutoff := time.Now().UTC().Add(-48 * time.Hour)
	res := s.DB.Model(&models.User{}).
		Where("current_streak > 0 AND (last_claim_at IS NULL OR last_claim_at < ?)", cutoff).
		Update("current_streak", 0)
	if res.Error != nil && !errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
