package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"wedding-backend/models"

	"gorm.io/gorm"
)

// HoneymoonService manages the fundraising goal and its contribution
// ledger. The goal's current_amount is a denormalized running sum, so
// every mutation of it happens inside a database transaction.
type HoneymoonService struct {
	DB *gorm.DB
}

func NewHoneymoonService(db *gorm.DB) *HoneymoonService {
	return &HoneymoonService{DB: db}
}

// Progress is the public status of the active goal.
type Progress struct {
	TargetAmount       float64 `json:"targetAmount"`
	CurrentAmount      float64 `json:"currentAmount"`
	Percentage         int     `json:"percentage"`
	IsActive           bool    `json:"isActive"`
	ContributionsCount int64   `json:"contributionsCount"`
}

// ReconcileResult reports what the maintenance pass changed.
type ReconcileResult struct {
	GoalID         uint    `json:"goalId"`
	PreviousAmount float64 `json:"previousAmount"`
	CurrentAmount  float64 `json:"currentAmount"`
	Corrected      bool    `json:"corrected"`
	RemovedPending int64   `json:"removedPending"`
}

func (s *HoneymoonService) activeGoal(db *gorm.DB) (*models.HoneymoonGoal, error) {
	var goal models.HoneymoonGoal
	err := db.Where("is_active = ?", true).Order("created_at DESC").First(&goal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActiveGoalNotFound
		}
		return nil, fmt.Errorf("failed to load active goal: %w", err)
	}
	return &goal, nil
}

// CalculateProgress returns the active goal's status. No active goal is
// not an error: the site simply hides the contribution card, so the
// response is all zeroes with isActive=false.
func (s *HoneymoonService) CalculateProgress() (Progress, error) {
	goal, err := s.activeGoal(s.DB)
	if err != nil {
		if errors.Is(err, ErrActiveGoalNotFound) {
			return Progress{}, nil
		}
		return Progress{}, err
	}

	var count int64
	if err := s.DB.Model(&models.Contribution{}).
		Where("honeymoon_id = ?", goal.ID).
		Count(&count).Error; err != nil {
		return Progress{}, fmt.Errorf("failed to count contributions: %w", err)
	}

	percentage := 0
	if goal.TargetAmount > 0 {
		pct := goal.CurrentAmount / goal.TargetAmount * 100
		pct = math.Min(math.Max(pct, 0), 100)
		percentage = int(math.Round(pct))
	}

	return Progress{
		TargetAmount:       goal.TargetAmount,
		CurrentAmount:      goal.CurrentAmount,
		Percentage:         percentage,
		IsActive:           goal.IsActive,
		ContributionsCount: count,
	}, nil
}

// ProcessContribution applies a confirmed payment to the active goal.
// Replays of the same transaction id are no-ops; the insert and the
// counter increment happen in one transaction.
func (s *HoneymoonService) ProcessContribution(amount float64, transactionID string, contributorName *string) error {
	existing, err := s.ContributionByTransactionID(transactionID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		goal, err := s.activeGoal(tx)
		if err != nil {
			return err
		}

		contribution := models.Contribution{
			HoneymoonID:     goal.ID,
			Amount:          amount,
			TransactionID:   transactionID,
			ContributorName: contributorName,
			PaymentStatus:   models.ContributionApproved,
		}
		if err := tx.Create(&contribution).Error; err != nil {
			if isDuplicateKeyError(err) {
				// Lost a replay race; the other writer already applied it.
				return nil
			}
			return fmt.Errorf("failed to create contribution: %w", err)
		}

		if err := tx.Model(&models.HoneymoonGoal{}).
			Where("id = ?", goal.ID).
			UpdateColumn("current_amount", gorm.Expr("current_amount + ?", amount)).Error; err != nil {
			return fmt.Errorf("failed to increment goal amount: %w", err)
		}
		return nil
	})
}

// CreatePendingContribution records the speculative ledger row at
// checkout-preference time, keyed by the gateway preference id so the
// webhook can later confirm it in place.
func (s *HoneymoonService) CreatePendingContribution(amount float64, contributorName *string, preferenceID string) (*models.Contribution, error) {
	var created models.Contribution
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		goal, err := s.activeGoal(tx)
		if err != nil {
			return err
		}
		created = models.Contribution{
			HoneymoonID:             goal.ID,
			Amount:                  amount,
			TransactionID:           "pending-" + preferenceID,
			MercadoPagoPreferenceID: &preferenceID,
			ContributorName:         contributorName,
			PaymentStatus:           models.ContributionPending,
		}
		if err := tx.Create(&created).Error; err != nil {
			return fmt.Errorf("failed to create pending contribution: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ApproveContribution flips the pending row for the preference to
// approved, records the real transaction id and increments the goal.
// Already-approved rows make it a no-op, so webhook replays are safe.
func (s *HoneymoonService) ApproveContribution(preferenceID, transactionID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var contribution models.Contribution
		err := tx.Where("mercado_pago_preference_id = ?", preferenceID).First(&contribution).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrContributionNotFound
			}
			return fmt.Errorf("failed to load contribution: %w", err)
		}

		if contribution.PaymentStatus == models.ContributionApproved {
			return nil
		}

		res := tx.Model(&models.Contribution{}).
			Where("id = ? AND payment_status = ?", contribution.ID, models.ContributionPending).
			Updates(map[string]interface{}{
				"payment_status": models.ContributionApproved,
				"transaction_id": transactionID,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to approve contribution: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Another webhook delivery approved it first.
			return nil
		}

		if err := tx.Model(&models.HoneymoonGoal{}).
			Where("id = ?", contribution.HoneymoonID).
			UpdateColumn("current_amount", gorm.Expr("current_amount + ?", contribution.Amount)).Error; err != nil {
			return fmt.Errorf("failed to increment goal amount: %w", err)
		}
		return nil
	})
}

// DeletePendingContribution removes the speculative row when the
// gateway reports the payment rejected, cancelled or refunded.
func (s *HoneymoonService) DeletePendingContribution(preferenceID string) error {
	err := s.DB.
		Where("mercado_pago_preference_id = ? AND payment_status = ?", preferenceID, models.ContributionPending).
		Delete(&models.Contribution{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete pending contribution: %w", err)
	}
	return nil
}

// ContributionByTransactionID returns nil without error when no row
// matches; absence is the normal case on first delivery.
func (s *HoneymoonService) ContributionByTransactionID(transactionID string) (*models.Contribution, error) {
	var contribution models.Contribution
	err := s.DB.Where("transaction_id = ?", transactionID).First(&contribution).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load contribution by transaction id: %w", err)
	}
	return &contribution, nil
}

func (s *HoneymoonService) PendingContributions() ([]models.Contribution, error) {
	var pending []models.Contribution
	err := s.DB.
		Where("payment_status = ?", models.ContributionPending).
		Order("created_at DESC").
		Find(&pending).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending contributions: %w", err)
	}
	return pending, nil
}

// Reconcile recomputes current_amount from the approved ledger rows and
// purges pending rows older than a day. Manual-trigger maintenance for
// the drift the always-200 webhook policy can accumulate.
func (s *HoneymoonService) Reconcile(now time.Time) (ReconcileResult, error) {
	goal, err := s.activeGoal(s.DB)
	if err != nil {
		return ReconcileResult{}, err
	}

	result := ReconcileResult{GoalID: goal.ID, PreviousAmount: goal.CurrentAmount}

	var realSum float64
	err = s.DB.Model(&models.Contribution{}).
		Where("honeymoon_id = ? AND payment_status = ?", goal.ID, models.ContributionApproved).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&realSum).Error
	if err != nil {
		return result, fmt.Errorf("failed to sum approved contributions: %w", err)
	}

	if goal.CurrentAmount != realSum {
		if err := s.DB.Model(&models.HoneymoonGoal{}).
			Where("id = ?", goal.ID).
			UpdateColumn("current_amount", realSum).Error; err != nil {
			return result, fmt.Errorf("failed to correct goal amount: %w", err)
		}
		result.Corrected = true
	}
	result.CurrentAmount = realSum

	res := s.DB.
		Where("payment_status = ? AND created_at < ?", models.ContributionPending, now.Add(-24*time.Hour)).
		Delete(&models.Contribution{})
	if res.Error != nil {
		return result, fmt.Errorf("failed to purge stale pending contributions: %w", res.Error)
	}
	result.RemovedPending = res.RowsAffected

	return result, nil
}
