package services

import (
	"errors"
	"log"
	"time"

	"coin-miniapp-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Referral-task thresholds by display name. Unknown names default to 1.
var referralTaskRequirements = map[string]int{
	"invite a friend":    1,
	"invite 10 friends":  10,
	"invite 50 friends":  50,
	"invite 100 friends": 100,
}

// ReferralTaskProgress is the progress fraction shown next to an invite task.
type ReferralTaskProgress struct {
	Current    int  `json:"current"`
	Required   int  `json:"required"`
	Percentage int  `json:"percentage"`
	IsComplete bool `json:"is_complete"`
}

// GetReferralTaskProgress maps a verified-referral count and a task name to a
// completion state. Pure table lookup, no state.
func GetReferralTaskProgress(verifiedCount int, taskName string) ReferralTaskProgress {
	required, ok := referralTaskRequirements[taskName]
	if !ok {
		required = 1
	}
	if verifiedCount < 0 {
		verifiedCount = 0
	}
	return referralProgressForRequired(verifiedCount, required)
}

type TaskService struct {
	DB        *gorm.DB
	Referrals *ReferralService
}

func NewTaskService(db *gorm.DB, referrals *ReferralService) *TaskService {
	return &TaskService{DB: db, Referrals: referrals}
}

// TaskView is a catalog entry joined with the user's completion state.
type TaskView struct {
	models.Task
	Completed   bool                  `json:"completed"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	Progress    *ReferralTaskProgress `json:"progress,omitempty"`
}

// ListForUser returns the active catalog with per-user completion and, for
// referral tasks, the live progress fraction.
func (s *TaskService) ListForUser(user *models.User) ([]TaskView, error) {
	var tasks []models.Task
	if err := s.DB.Where("active = ?", true).Order("created_at ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}

	var done []models.UserTask
	if err := s.DB.Where("user_id = ?", user.ID).Find(&done).Error; err != nil {
		return nil, err
	}
	completedAt := make(map[string]time.Time, len(done))
	for _, ut := range done {
		completedAt[ut.TaskID] = ut.CompletedAt
	}

	var verified int64
	if len(tasks) > 0 {
		var err error
		verified, err = s.Referrals.VerifiedCount(user.Username)
		if err != nil {
			return nil, err
		}
	}

	views := make([]TaskView, 0, len(tasks))
	for _, task := range tasks {
		view := TaskView{Task: task}
		if at, ok := completedAt[task.ID]; ok {
			view.Completed = true
			at := at
			view.CompletedAt = &at
		}
		if task.Kind == models.TaskKindReferral {
			progress := referralProgressForRequired(int(verified), task.Required)
			view.Progress = &progress
		}
		views = append(views, view)
	}
	return views, nil
}

func referralProgressForRequired(current, required int) ReferralTaskProgress {
	if required < 1 {
		required = 1
	}
	percentage := current * 100 / required
	if percentage > 100 {
		percentage = 100
	}
	return ReferralTaskProgress{
		Current:    current,
		Required:   required,
		Percentage: percentage,
		IsComplete: current >= required,
	}
}

// CompleteResult mirrors SettleResult's toast-ready shape.
type CompleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Reward  int64  `json:"reward,omitempty"`
}

// Complete marks a task done and credits its reward, exactly once per
// (user, task). Referral tasks only complete once the verified count meets
// the threshold.
func (s *TaskService) Complete(user *models.User, taskCode string) (CompleteResult, error) {
	var task models.Task
	if err := s.DB.Where("code = ? AND active = ?", taskCode, true).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CompleteResult{Success: false, Message: "task not found"}, nil
		}
		return CompleteResult{}, err
	}

	if task.Kind == models.TaskKindReferral {
		verified, err := s.Referrals.VerifiedCount(user.Username)
		if err != nil {
			return CompleteResult{}, err
		}
		if int(verified) < task.Required {
			return CompleteResult{Success: false, Message: "task requirements not met"}, nil
		}
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		done := models.UserTask{
			ID:          uuid.NewString(),
			UserID:      user.ID,
			TaskID:      task.ID,
			RewardCoins: task.RewardCoins,
			CompletedAt: time.Now(),
		}
		if err := tx.Create(&done).Error; err != nil {
			if isDuplicateKey(err) {
				return errAlreadyClaimed
			}
			return err
		}

		return tx.Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("coins", gorm.Expr("coins + ?", task.RewardCoins)).Error
	})

	switch {
	case err == nil:
		log.Printf("✅ Task %s completed by %s (+%d coins)", task.Code, user.Username, task.RewardCoins)
		return CompleteResult{Success: true, Message: "task reward credited", Reward: task.RewardCoins}, nil
	case errors.Is(err, errAlreadyClaimed):
		return CompleteResult{Success: true, Message: "task already completed"}, nil
	default:
		return CompleteResult{Success: false, Message: "task could not be completed"}, err
	}
}
