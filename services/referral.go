package services

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"coin-miniapp-system/models"
	"coin-miniapp-system/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReferralRewards are the fixed payout amounts for a settled referral.
// Policy constants, env-overridable.
type ReferralRewards struct {
	ReferrerCoins   int64
	ReferredCoins   int64
	ReferrerTickets int64
}

// ReferralRewardsFromEnv loads the payout policy with product defaults.
func ReferralRewardsFromEnv() ReferralRewards {
	return ReferralRewards{
		ReferrerCoins:   utils.GetenvInt64("REFERRER_REWARD_COINS", 5000),
		ReferredCoins:   utils.GetenvInt64("REFERRED_REWARD_COINS", 2500),
		ReferrerTickets: utils.GetenvInt64("REFERRER_REWARD_TICKETS", 1),
	}
}

type ReferralService struct {
	DB      *gorm.DB
	Rewards ReferralRewards
}

func NewReferralService(db *gorm.DB, rewards ReferralRewards) *ReferralService {
	return &ReferralService{DB: db, Rewards: rewards}
}

// SettleResult is what the signup path (and the webhook) report back to the
// client; messages are short enough for a toast.
type SettleResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

var (
	errUnknownReferrer = errors.New("referrer not found")
	errAlreadyClaimed  = errors.New("referral already claimed")
)

// CaptureReferralCode extracts the inviter username from a Mini App start
// parameter, falling back to web launch query keys. Empty input is a normal
// no-op and yields "". The code travels explicitly with the signup request;
// nothing is staged server-side.
func CaptureReferralCode(startParam string, query url.Values) string {
	if code := NormalizeUsername(startParam); code != "" {
		return code
	}
	if query == nil {
		return ""
	}
	for _, key := range []string{"startapp", "start", "ref"} {
		if code := NormalizeUsername(query.Get(key)); code != "" {
			return code
		}
	}
	return ""
}

// NormalizeUsername folds a Telegram handle to its canonical form.
func NormalizeUsername(handle string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(handle, "@")))
}

// SettleReferral turns an inviter code plus a freshly created account into a
// verified, rewarded referral record, exactly once.
//
// Guards, in order: self-referral, already-claimed, unknown referrer. The
// record insert and both balance credits happen in one transaction; the
// unique index on referred_username is the idempotency authority, so a
// concurrent duplicate settlement loses cleanly with a duplicate-key error.
//
// Validation failures are results, not errors; the error return is for store
// failures only.
func (s *ReferralService) SettleReferral(referrer, referred string) (SettleResult, error) {
	referrer = NormalizeUsername(referrer)
	referred = NormalizeUsername(referred)

	if referrer == "" || referred == "" {
		return SettleResult{Success: false, Message: "missing username"}, nil
	}
	if referrer == referred {
		return SettleResult{Success: false, Message: "you cannot refer yourself"}, nil
	}

	// Fast path for repeat calls; the unique index inside the transaction
	// remains the authority under concurrency.
	var existing int64
	if err := s.DB.Model(&models.Referral{}).
		Where("referred_username = ?", referred).
		Count(&existing).Error; err != nil {
		return SettleResult{Success: false, Message: "referral could not be processed"}, err
	}
	if existing > 0 {
		return SettleResult{Success: true, Message: "referral already claimed"}, nil
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var inviter models.User
		if err := tx.Where("username = ?", referrer).First(&inviter).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errUnknownReferrer
			}
			return err
		}

		record := models.Referral{
			ID:               uuid.NewString(),
			ReferrerUsername: referrer,
			ReferredUsername: referred,
			Status:           models.ReferralStatusPending,
			ReferrerReward:   s.Rewards.ReferrerCoins,
			ReferredReward:   s.Rewards.ReferredCoins,
			ReferrerTickets:  s.Rewards.ReferrerTickets,
		}
		if err := tx.Create(&record).Error; err != nil {
			if isDuplicateKey(err) {
				return errAlreadyClaimed
			}
			return err
		}

		return s.creditAndVerify(tx, &record)
	})

	switch {
	case err == nil:
		referralsSettled.Inc()
		log.Printf("🤝 Referral settled: %s → %s", referrer, referred)
		return SettleResult{Success: true, Message: "referral reward credited"}, nil
	case errors.Is(err, errAlreadyClaimed):
		// Idempotent no-op from the caller's perspective
		return SettleResult{Success: true, Message: "referral already claimed"}, nil
	case errors.Is(err, errUnknownReferrer):
		return SettleResult{Success: false, Message: "referrer not found"}, nil
	default:
		return SettleResult{Success: false, Message: "referral could not be processed"}, err
	}
}

// creditAndVerify pays out both sides and flips the record to verified.
// Runs inside the settlement transaction; also reused by the scheduler sweep
// to finish any record left pending.
func (s *ReferralService) creditAndVerify(tx *gorm.DB, record *models.Referral) error {
	res := tx.Model(&models.User{}).
		Where("username = ?", record.ReferrerUsername).
		Updates(map[string]interface{}{
			"coins":           gorm.Expr("coins + ?", record.ReferrerReward),
			"spin_tickets":    gorm.Expr("spin_tickets + ?", record.ReferrerTickets),
			"total_referrals": gorm.Expr("total_referrals + ?", 1),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("referrer account %q not found", record.ReferrerUsername)
	}

	res = tx.Model(&models.User{}).
		Where("username = ?", record.ReferredUsername).
		Updates(map[string]interface{}{
			"coins":       gorm.Expr("coins + ?", record.ReferredReward),
			"referred_by": record.ReferrerUsername,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("referred account %q not found", record.ReferredUsername)
	}

	now := time.Now()
	record.Status = models.ReferralStatusVerified
	record.VerifiedAt = &now
	return tx.Save(record).Error
}

// VerifyPending settles any referral rows still pending after olderThan.
// The normal path verifies in the settlement transaction, so this sweep only
// matters for rows written by older deployments.
func (s *ReferralService) VerifyPending(olderThan time.Duration) (int, error) {
	var stale []models.Referral
	cutoff := time.Now().Add(-olderThan)
	if err := s.DB.Where("status = ? AND created_at < ?", models.ReferralStatusPending, cutoff).
		Find(&stale).Error; err != nil {
		return 0, err
	}

	verified := 0
	for i := range stale {
		record := stale[i]
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			return s.creditAndVerify(tx, &record)
		})
		if err != nil {
			log.Printf("❌ Failed to verify pending referral %s: %v", record.ID, err)
			continue
		}
		verified++
	}
	return verified, nil
}

// GetStats aggregates the referral page numbers for one inviter.
func (s *ReferralService) GetStats(username string) (models.ReferralStats, error) {
	username = NormalizeUsername(username)
	var stats models.ReferralStats

	if err := s.DB.Model(&models.Referral{}).
		Where("referrer_username = ?", username).
		Count(&stats.TotalInvited).Error; err != nil {
		return stats, err
	}
	if err := s.DB.Model(&models.Referral{}).
		Where("referrer_username = ? AND status = ?", username, models.ReferralStatusVerified).
		Count(&stats.Verified).Error; err != nil {
		return stats, err
	}

	var earned *int64
	if err := s.DB.Model(&models.Referral{}).
		Select("SUM(referrer_reward)").
		Where("referrer_username = ? AND status = ?", username, models.ReferralStatusVerified).
		Scan(&earned).Error; err != nil {
		return stats, err
	}
	if earned != nil {
		stats.CoinsEarned = *earned
	}
	return stats, nil
}

// VerifiedCount is the number the referral task table keys off.
func (s *ReferralService) VerifiedCount(username string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Referral{}).
		Where("referrer_username = ? AND status = ?", NormalizeUsername(username), models.ReferralStatusVerified).
		Count(&count).Error
	return count, err
}

// ListReferrals returns the inviter's referral rows, newest first.
func (s *ReferralService) ListReferrals(username string, limit int) ([]models.Referral, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []models.Referral
	err := s.DB.Where("referrer_username = ?", NormalizeUsername(username)).
		Order("created_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
