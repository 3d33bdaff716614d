package services

import (
	"errors"
	"fmt"
	"log"

	"coin-miniapp-system/models"
	"coin-miniapp-system/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService struct {
	DB        *gorm.DB
	Referrals *ReferralService
}

func NewUserService(db *gorm.DB, referrals *ReferralService) *UserService {
	return &UserService{DB: db, Referrals: referrals}
}

// SignupResult carries the account plus the outcome of any referral that
// accompanied the launch.
type SignupResult struct {
	User     *models.User  `json:"user"`
	Created  bool          `json:"created"`
	Referral *SettleResult `json:"referral,omitempty"`
}

// Signup creates the account for a verified Telegram identity, or returns the
// existing one. When a start param carried an inviter code, settlement runs
// synchronously right after creation (never for returning users).
func (s *UserService) Signup(tg utils.TelegramUser, startParam string) (*SignupResult, error) {
	var user models.User
	err := s.DB.Where("telegram_id = ?", tg.ID).First(&user).Error
	if err == nil {
		return &SignupResult{User: &user, Created: false}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	username := NormalizeUsername(tg.Username)
	if username == "" {
		// Telegram accounts without a public handle still need a referral code
		username = fmt.Sprintf("user%d", tg.ID)
	}

	user = models.User{
		ID:         uuid.NewString(),
		TelegramID: tg.ID,
		Username:   username,
		FirstName:  tg.FirstName,
		LastName:   tg.LastName,
		AvatarURL:  tg.PhotoURL,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		if isDuplicateKey(err) {
			// Lost a race with a concurrent signup for the same account
			if err := s.DB.Where("telegram_id = ?", tg.ID).First(&user).Error; err != nil {
				return nil, err
			}
			return &SignupResult{User: &user, Created: false}, nil
		}
		return nil, err
	}
	log.Printf("👤 New user: %s (telegram %d)", user.Username, user.TelegramID)

	result := &SignupResult{User: &user, Created: true}
	if code := CaptureReferralCode(startParam, nil); code != "" {
		settle, err := s.Referrals.SettleReferral(code, user.Username)
		if err != nil {
			// Account creation succeeded; a failed settlement is reported,
			// not rolled into a signup error.
			log.Printf("❌ Referral settlement failed for %s: %v", user.Username, err)
		}
		result.Referral = &settle
		// Reload so the response shows the credited balance
		if err := s.DB.Where("id = ?", user.ID).First(result.User).Error; err != nil {
			return nil, err
		}
	}
	return result, nil
}

// GetByTelegramID resolves the account for an authenticated request.
func (s *UserService) GetByTelegramID(telegramID int64) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername resolves a public handle.
func (s *UserService) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("username = ?", NormalizeUsername(username)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
