package models

import "time"

// ReferralStatus is the two-state lifecycle of a referral record.
// pending → verified happens once and is terminal; records are never deleted.
type ReferralStatus string

const (
	ReferralStatusPending  ReferralStatus = "pending"
	ReferralStatusVerified ReferralStatus = "verified"
)

// Referral is the durable record of who invited whom and what was paid out.
// The unique index on ReferredUsername is the idempotency guarantee: a user
// can be referred at most once, and a duplicate-key error on insert is the
// already-claimed signal.
type Referral struct {
	ID               string         `gorm:"primaryKey;size:36" json:"id"`
	ReferrerUsername string         `gorm:"index;not null" json:"referrer_username"`
	ReferredUsername string         `gorm:"uniqueIndex;not null" json:"referred_username"`
	Status           ReferralStatus `gorm:"not null;default:'pending'" json:"status"`

	// Reward amounts captured at settlement time (policy constants may change later)
	ReferrerReward  int64 `json:"referrer_reward"`
	ReferredReward  int64 `json:"referred_reward"`
	ReferrerTickets int64 `json:"referrer_tickets"`

	VerifiedAt *time.Time `json:"verified_at,omitempty"`

	Timestamps
}

// ReferralStats is the aggregate view rendered on the invite page.
type ReferralStats struct {
	TotalInvited int64 `json:"total_invited"`
	Verified     int64 `json:"verified"`
	CoinsEarned  int64 `json:"coins_earned"`
}
