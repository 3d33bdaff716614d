package models

import "time"

// MiningSession is one open-then-claimed mining window. A user has at most
// one unclaimed session at a time (enforced by the service, not the schema,
// since rows are kept after claiming).
type MiningSession struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	UserID      string     `gorm:"index;not null" json:"user_id"`
	RatePerHour int64      `gorm:"not null" json:"rate_per_hour"`
	StartedAt   time.Time  `gorm:"not null" json:"started_at"`
	ClaimedAt   *time.Time `gorm:"index" json:"claimed_at,omitempty"`
	CoinsMined  int64      `gorm:"default:0" json:"coins_mined"`

	Timestamps
}
