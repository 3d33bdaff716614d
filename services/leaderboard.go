package services

import (
	"coin-miniapp-system/models"

	"gorm.io/gorm"
)

type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

// LeaderboardEntry is one row of the coins ranking.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Coins     int64  `json:"coins"`
}

// Top returns the highest coin balances. Ties break by account age so the
// ordering is stable across refreshes.
func (s *LeaderboardService) Top(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var users []models.User
	if err := s.DB.Order("coins DESC, created_at ASC").Limit(limit).Find(&users).Error; err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = LeaderboardEntry{
			Rank:      i + 1,
			Username:  u.Username,
			AvatarURL: u.AvatarURL,
			Coins:     u.Coins,
		}
	}
	return entries, nil
}

// RankOf returns the 1-based position of one user in the coins ranking.
func (s *LeaderboardService) RankOf(user *models.User) (int, error) {
	var ahead int64
	err := s.DB.Model(&models.User{}).
		Where("coins > ? OR (coins = ? AND created_at < ?)", user.Coins, user.Coins, user.CreatedAt).
		Count(&ahead).Error
	if err != nil {
		return 0, err
	}
	return int(ahead) + 1, nil
}

// ClanStanding is one row of the clan ranking (score = sum of member coins).
type ClanStanding struct {
	Rank        int    `json:"rank"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	EmblemURL   string `json:"emblem_url,omitempty"`
	MemberCount int64  `json:"member_count"`
	Score       int64  `json:"score"`
}

// TopClans ranks clans by their members' combined balance.
func (s *LeaderboardService) TopClans(limit int) ([]ClanStanding, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var standings []ClanStanding
	err := s.DB.Raw(`
		SELECT c.name, c.slug, c.emblem_url, c.member_count,
		       COALESCE(SUM(u.coins), 0) AS score
		FROM clans c
		LEFT JOIN users u ON u.clan_id = c.id AND u.deleted_at IS NULL
		WHERE c.deleted_at IS NULL
		GROUP BY c.id, c.name, c.slug, c.emblem_url, c.member_count
		ORDER BY score DESC
		LIMIT ?
	`, limit).Scan(&standings).Error
	if err != nil {
		return nil, err
	}
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings, nil
}
