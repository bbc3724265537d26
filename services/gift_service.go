package services

import (
	"errors"
	"fmt"
	"time"

	"wedding-backend/models"
	"wedding-backend/utils"

	"gorm.io/gorm"
)

// GiftService wraps *gorm.DB with the gift-registry business rules. The
// same rules apply to both event types; the table is picked per call.
type GiftService struct {
	DB *gorm.DB
}

func NewGiftService(db *gorm.DB) *GiftService {
	return &GiftService{DB: db}
}

func (s *GiftService) table(tipo models.EventType) *gorm.DB {
	return s.DB.Table(tipo.GiftTable())
}

func (s *GiftService) ListByEventType(tipo models.EventType) ([]models.Gift, error) {
	var gifts []models.Gift
	if err := s.table(tipo).Order("ordem ASC").Find(&gifts).Error; err != nil {
		return nil, fmt.Errorf("failed to list gifts: %w", err)
	}
	if gifts == nil {
		gifts = []models.Gift{}
	}
	return gifts, nil
}

func (s *GiftService) FindByID(tipo models.EventType, id string) (*models.Gift, error) {
	var gift models.Gift
	if err := s.table(tipo).Where("id = ?", id).First(&gift).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGiftNotFound
		}
		return nil, fmt.Errorf("failed to find gift: %w", err)
	}
	return &gift, nil
}

// Reserve holds a gift for 48h and returns the one-time access code.
// The state transition is a single conditional UPDATE guarded by
// RowsAffected, so of two concurrent guests exactly one wins; the loser
// gets GIFT_NOT_AVAILABLE without partial mutation.
func (s *GiftService) Reserve(tipo models.EventType, id, name, phone string) (string, error) {
	gift, err := s.FindByID(tipo, id)
	if err != nil {
		return "", err
	}
	if gift.Reservado || gift.IsBought {
		return "", ErrGiftNotAvailable
	}

	code, err := s.generateUniqueCode()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	res := s.table(tipo).
		Where("id = ? AND reservado = ? AND is_bought = ?", id, false, false).
		Updates(map[string]interface{}{
			"reservado":              true,
			"reserved_by":            name,
			"reserved_phone_hash":    utils.HashPhone(phone),
			"reserved_phone_display": utils.MaskPhoneForDisplay(phone),
			"reserved_at":            now,
			"reserved_until":         utils.ReservationExpiry(now),
			"telefone_contato":       code,
			"updated_at":             now,
		})
	if res.Error != nil {
		return "", fmt.Errorf("failed to reserve gift: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return "", ErrGiftNotAvailable
	}
	return code, nil
}

// CancelReservation releases a gift when the access code matches. All
// reservation fields are cleared.
func (s *GiftService) CancelReservation(tipo models.EventType, id, code string) error {
	gift, err := s.FindByID(tipo, id)
	if err != nil {
		return err
	}
	if gift.TelefoneContato == nil || *gift.TelefoneContato != code {
		return ErrInvalidCode
	}
	if !gift.Reservado {
		return ErrGiftNotReserved
	}

	res := s.table(tipo).
		Where("id = ? AND telefone_contato = ?", id, code).
		Updates(clearReservationColumns(time.Now().UTC()))
	if res.Error != nil {
		return fmt.Errorf("failed to cancel reservation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidCode
	}
	return nil
}

// MarkAsPurchased confirms a purchase with the access code. The
// reservation fields are kept on purpose: the list keeps showing who
// holds the gift after it is bought.
func (s *GiftService) MarkAsPurchased(tipo models.EventType, id, code string) error {
	gift, err := s.FindByID(tipo, id)
	if err != nil {
		return err
	}
	if gift.TelefoneContato == nil || *gift.TelefoneContato != code {
		return ErrInvalidCode
	}
	if !gift.Reservado {
		return ErrGiftNotReserved
	}

	now := time.Now().UTC()
	res := s.table(tipo).
		Where("id = ? AND telefone_contato = ?", id, code).
		Updates(map[string]interface{}{
			"is_bought":    true,
			"purchased_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark gift as purchased: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidCode
	}
	return nil
}

// MarkAsPurchasedByTransaction is the webhook path: the gateway already
// confirmed payment, so no access code is required.
func (s *GiftService) MarkAsPurchasedByTransaction(tipo models.EventType, id, transactionID, buyerName string) error {
	now := time.Now().UTC()
	values := map[string]interface{}{
		"is_bought":      true,
		"purchased_at":   now,
		"transaction_id": transactionID,
		"updated_at":     now,
	}
	if buyerName != "" {
		values["purchased_by"] = buyerName
	}
	res := s.table(tipo).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("failed to mark gift as purchased by transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrGiftNotFound
	}
	return nil
}

// ReleaseExpired clears every reservation whose window has passed, in
// both gift tables. There is no background sweeper; this runs on demand
// from the admin surface.
func (s *GiftService) ReleaseExpired(now time.Time) (int64, error) {
	var released int64
	for _, tipo := range []models.EventType{models.EventCasamento, models.EventChaPanela} {
		res := s.table(tipo).
			Where("reservado = ? AND is_bought = ? AND reserved_until IS NOT NULL AND reserved_until < ?", true, false, now).
			Updates(clearReservationColumns(now))
		if res.Error != nil {
			return released, fmt.Errorf("failed to release expired reservations (%s): %w", tipo, res.Error)
		}
		released += res.RowsAffected
	}
	return released, nil
}

func clearReservationColumns(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"reservado":              false,
		"reserved_by":            nil,
		"reserved_phone_hash":    nil,
		"reserved_phone_display": nil,
		"reserved_at":            nil,
		"reserved_until":         nil,
		"telefone_contato":       nil,
		"updated_at":             now,
	}
}

// generateUniqueCode retries until the code is unused across both gift
// tables. Not transactional against a concurrent generation, but at a
// few dozen rows a collision slipping through is vanishingly unlikely.
func (s *GiftService) generateUniqueCode() (string, error) {
	const maxRetries = 25
	for attempt := 0; attempt < maxRetries; attempt++ {
		code, err := utils.GenerateReservationCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate reservation code: %w", err)
		}
		unique, err := s.isCodeUnique(code)
		if err != nil {
			return "", err
		}
		if unique {
			return code, nil
		}
	}
	return "", utils.ErrCodeExhausted
}

func (s *GiftService) isCodeUnique(code string) (bool, error) {
	for _, tipo := range []models.EventType{models.EventCasamento, models.EventChaPanela} {
		var count int64
		if err := s.table(tipo).Where("telefone_contato = ?", code).Count(&count).Error; err != nil {
			return false, fmt.Errorf("failed to check code uniqueness: %w", err)
		}
		if count > 0 {
			return false, nil
		}
	}
	return true, nil
}
