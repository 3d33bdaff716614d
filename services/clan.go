package services

import (
	"errors"
	"log"
	"math/rand"
	"strings"
	"time"

	"coin-miniapp-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

var (
	ErrClanNameTaken    = errors.New("clan name already taken")
	ErrAlreadyInClan    = errors.New("user already belongs to a clan")
	ErrNotInClan        = errors.New("user does not belong to a clan")
	ErrClanNotFound     = errors.New("clan not found")
	ErrClanNotEmpty     = errors.New("owner cannot leave while the clan has members")
	ErrInsufficientBet  = errors.New("not enough coins for the wager")
	ErrBattleNotPending = errors.New("battle is no longer pending")
)

type ClanService struct {
	DB *gorm.DB
}

func NewClanService(db *gorm.DB) *ClanService {
	return &ClanService{DB: db}
}

// CreateClan makes a new clan with the caller as owner and sole member.
// Names are NFC-normalized before slugging so visually identical names
// collide instead of coexisting.
func (s *ClanService) CreateClan(owner *models.User, name string) (*models.Clan, error) {
	if owner.ClanID != nil {
		return nil, ErrAlreadyInClan
	}

	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" {
		return nil, errors.New("clan name is required")
	}

	clan := &models.Clan{
		ID:          uuid.NewString(),
		Name:        name,
		Slug:        slug.Make(name),
		OwnerID:     owner.ID,
		MemberCount: 1,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(clan).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrClanNameTaken
			}
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", owner.ID).
			Update("clan_id", clan.ID).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🛡️ Clan created: %s (%s) by %s", clan.Name, clan.Slug, owner.Username)
	return clan, nil
}

// GetBySlug resolves a clan.
func (s *ClanService) GetBySlug(clanSlug string) (*models.Clan, error) {
	var clan models.Clan
	if err := s.DB.Where("slug = ?", clanSlug).First(&clan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClanNotFound
		}
		return nil, err
	}
	return &clan, nil
}

// GetByID resolves a clan by primary key.
func (s *ClanService) GetByID(id string) (*models.Clan, error) {
	var clan models.Clan
	if err := s.DB.Where("id = ?", id).First(&clan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClanNotFound
		}
		return nil, err
	}
	return &clan, nil
}

// Join adds the user to the clan behind slug.
func (s *ClanService) Join(user *models.User, clanSlug string) (*models.Clan, error) {
	if user.ClanID != nil {
		return nil, ErrAlreadyInClan
	}
	clan, err := s.GetBySlug(clanSlug)
	if err != nil {
		return nil, err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("clan_id", clan.ID).Error; err != nil {
			return err
		}
		return tx.Model(&models.Clan{}).
			Where("id = ?", clan.ID).
			Update("member_count", gorm.Expr("member_count + ?", 1)).Error
	})
	if err != nil {
		return nil, err
	}
	return clan, nil
}

// Leave removes the user from their clan. The owner may only leave as the
// last member, which disbands the clan.
func (s *ClanService) Leave(user *models.User) error {
	if user.ClanID == nil {
		return ErrNotInClan
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		var clan models.Clan
		if err := tx.Where("id = ?", *user.ClanID).First(&clan).Error; err != nil {
			return err
		}

		if clan.OwnerID == user.ID && clan.MemberCount > 1 {
			return ErrClanNotEmpty
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("clan_id", nil).Error; err != nil {
			return err
		}

		if clan.OwnerID == user.ID {
			return tx.Delete(&clan).Error
		}
		return tx.Model(&models.Clan{}).
			Where("id = ?", clan.ID).
			Update("member_count", gorm.Expr("member_count - ?", 1)).Error
	})
}

// Members lists a clan's roster, richest first.
func (s *ClanService) Members(clanID string) ([]models.User, error) {
	var members []models.User
	err := s.DB.Where("clan_id = ?", clanID).Order("coins DESC").Find(&members).Error
	return members, err
}

// SetEmblem stores the uploaded emblem URL.
func (s *ClanService) SetEmblem(clan *models.Clan, url string) error {
	return s.DB.Model(clan).Update("emblem_url", url).Error
}

// --- PvP battles ---

// Challenge opens a coin-wager battle against another user. Both sides must
// cover the wager at resolution time; the challenger's balance is checked
// here so obviously unfundable challenges never appear.
func (s *ClanService) Challenge(challenger *models.User, opponent *models.User, wager int64) (*models.Battle, error) {
	if wager <= 0 {
		return nil, errors.New("wager must be positive")
	}
	if challenger.ID == opponent.ID {
		return nil, errors.New("you cannot battle yourself")
	}
	if challenger.Coins < wager {
		return nil, ErrInsufficientBet
	}

	battle := &models.Battle{
		ID:           uuid.NewString(),
		ChallengerID: challenger.ID,
		OpponentID:   opponent.ID,
		Wager:        wager,
		Status:       models.BattleStatusPending,
	}
	if err := s.DB.Create(battle).Error; err != nil {
		return nil, err
	}
	return battle, nil
}

// Accept resolves a pending battle: a fair coin flip picks the winner and the
// wager moves from loser to winner, all in one transaction.
func (s *ClanService) Accept(battleID, opponentID string) (*models.Battle, error) {
	var battle models.Battle
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND opponent_id = ?", battleID, opponentID).
			First(&battle).Error; err != nil {
			return err
		}
		if battle.Status != models.BattleStatusPending {
			return ErrBattleNotPending
		}

		var challenger, opponent models.User
		if err := tx.Where("id = ?", battle.ChallengerID).First(&challenger).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", battle.OpponentID).First(&opponent).Error; err != nil {
			return err
		}
		if challenger.Coins < battle.Wager || opponent.Coins < battle.Wager {
			return ErrInsufficientBet
		}

		winner, loser := &challenger, &opponent
		if rand.Intn(2) == 1 {
			winner, loser = &opponent, &challenger
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", winner.ID).
			Update("coins", gorm.Expr("coins + ?", battle.Wager)).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).
			Where("id = ?", loser.ID).
			Update("coins", gorm.Expr("coins - ?", battle.Wager)).Error; err != nil {
			return err
		}

		now := time.Now()
		battle.Status = models.BattleStatusResolved
		battle.WinnerID = &winner.ID
		battle.ResolvedAt = &now
		return tx.Save(&battle).Error
	})
	if err != nil {
		return nil, err
	}

	battlesResolved.Inc()
	log.Printf("⚔️ Battle %s resolved, winner %s (wager %d)", battle.ID, *battle.WinnerID, battle.Wager)
	return &battle, nil
}

// Decline refuses a pending challenge.
func (s *ClanService) Decline(battleID, opponentID string) error {
	res := s.DB.Model(&models.Battle{}).
		Where("id = ? AND opponent_id = ? AND status = ?", battleID, opponentID, models.BattleStatusPending).
		Update("status", models.BattleStatusDeclined)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBattleNotPending
	}
	return nil
}

// BattlesFor lists a user's battles, newest first.
func (s *ClanService) BattlesFor(userID string, limit int) ([]models.Battle, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var battles []models.Battle
	err := s.DB.Where("challenger_id = ? OR opponent_id = ?", userID, userID).
		Order("created_at DESC").Limit(limit).Find(&battles).Error
	return battles, err
}
