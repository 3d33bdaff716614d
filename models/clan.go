package models

import "time"

// Clan is a player-created group. Score is computed from member coin
// balances at query time; MemberCount is kept denormalized for listings.
type Clan struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	OwnerID     string `gorm:"index;not null" json:"owner_id"`
	EmblemURL   string `json:"emblem_url,omitempty"`
	MemberCount int64  `gorm:"default:0" json:"member_count"`

	Timestamps
}

// BattleStatus is the PvP challenge lifecycle.
type BattleStatus string

const (
	BattleStatusPending  BattleStatus = "pending"
	BattleStatusResolved BattleStatus = "resolved"
	BattleStatusDeclined BattleStatus = "declined"
)

// Battle is a coin-wager duel between two users. The wager is held implicitly:
// balances only move when the battle resolves, inside one transaction.
type Battle struct {
	ID           string       `gorm:"primaryKey;size:36" json:"id"`
	ChallengerID string       `gorm:"index;not null" json:"challenger_id"`
	OpponentID   string       `gorm:"index;not null" json:"opponent_id"`
	Wager        int64        `gorm:"not null" json:"wager"`
	Status       BattleStatus `gorm:"not null;default:'pending';index" json:"status"`
	WinnerID     *string      `json:"winner_id,omitempty"`
	ResolvedAt   *time.Time   `json:"resolved_at,omitempty"`

	Timestamps
}
