package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User is the Telegram-keyed account. Username doubles as the user's public
// handle and their referral code (it is what travels in invite links).
type User struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	TelegramID int64  `gorm:"uniqueIndex;not null" json:"telegram_id"`
	Username   string `gorm:"uniqueIndex;not null" json:"username"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`

	// Balances
	Coins       int64           `gorm:"default:0" json:"coins"`
	TonBalance  decimal.Decimal `gorm:"type:decimal(20,9);default:0" json:"ton_balance"`
	SpinTickets int64           `gorm:"default:0" json:"spin_tickets"`

	// Referral bookkeeping (counter denormalized for task/leaderboard views)
	ReferredBy     *string `gorm:"index" json:"referred_by,omitempty"` // referrer username
	TotalReferrals int64   `gorm:"default:0" json:"total_referrals"`

	// Daily login streak
	CurrentStreak int        `gorm:"default:0" json:"current_streak"`
	LongestStreak int        `gorm:"default:0" json:"longest_streak"`
	LastClaimAt   *time.Time `json:"last_claim_at,omitempty"`

	ClanID *string `gorm:"index" json:"clan_id,omitempty"`

	// Premium subscription window (TON-paid)
	PremiumUntil *time.Time `json:"premium_until,omitempty"`

	Timestamps
}

// IsPremium reports whether the user's paid subscription is currently active.
func (u *User) IsPremium(now time.Time) bool {
	return u.PremiumUntil != nil && u.PremiumUntil.After(now)
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
