package models

import "time"

// TaskKind groups tasks by how completion is verified.
type TaskKind string

const (
	TaskKindSocial   TaskKind = "social"   // follow/join links, claimed on trust
	TaskKindReferral TaskKind = "referral" // auto-verified from the verified-referral count
)

// Task is a catalog entry. Referral-kind tasks carry the invite threshold in
// Required; social tasks have Required = 1.
type Task struct {
	ID          string   `gorm:"primaryKey;size:36" json:"id"`
	Code        string   `gorm:"uniqueIndex;not null" json:"code"`
	Title       string   `gorm:"not null" json:"title"`
	Kind        TaskKind `gorm:"not null" json:"kind"`
	Required    int      `gorm:"default:1" json:"required"`
	RewardCoins int64    `gorm:"not null" json:"reward_coins"`
	LinkURL     string   `json:"link_url,omitempty"`
	Active      bool     `gorm:"default:true;index" json:"active"`

	Timestamps
}

// UserTask records a completed task. The composite unique index makes
// completion idempotent per (user, task).
type UserTask struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"uniqueIndex:idx_user_task;not null" json:"user_id"`
	TaskID      string    `gorm:"uniqueIndex:idx_user_task;not null" json:"task_id"`
	RewardCoins int64     `json:"reward_coins"`
	CompletedAt time.Time `json:"completed_at"`

	Timestamps
}
