package services

import (
	"errors"
	"fmt"
	"strings"

	"wedding-backend/models"

	mysql "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// RsvpService handles attendance confirmations. A name may confirm only
// once per event type, compared case-insensitively.
type RsvpService struct {
	DB *gorm.DB
}

func NewRsvpService(db *gorm.DB) *RsvpService {
	return &RsvpService{DB: db}
}

func (s *RsvpService) table(tipo models.EventType) *gorm.DB {
	return s.DB.Table(tipo.RsvpTable())
}

// Create inserts a confirmation. The pre-check gives the common case a
// friendly error; the unique index on nome_normalizado catches the two
// requests that race past it, and the duplicate-key error maps to the
// same DUPLICATE_NAME.
func (s *RsvpService) Create(tipo models.EventType, nomeCompleto, contato string, mensagem *string) (*models.Rsvp, error) {
	normalized := strings.ToLower(strings.TrimSpace(nomeCompleto))

	var existing models.Rsvp
	err := s.table(tipo).Where("nome_normalizado = ?", normalized).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateName
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing rsvp: %w", err)
	}

	rsvp := models.Rsvp{
		NomeCompleto:    strings.TrimSpace(nomeCompleto),
		NomeNormalizado: normalized,
		Contato:         strings.TrimSpace(contato),
		Mensagem:        mensagem,
	}
	if err := s.table(tipo).Create(&rsvp).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to create rsvp: %w", err)
	}
	return &rsvp, nil
}

func (s *RsvpService) ListByEventType(tipo models.EventType) ([]models.Rsvp, error) {
	var rsvps []models.Rsvp
	if err := s.table(tipo).Order("created_at DESC").Find(&rsvps).Error; err != nil {
		return nil, fmt.Errorf("failed to list rsvps: %w", err)
	}
	if rsvps == nil {
		rsvps = []models.Rsvp{}
	}
	return rsvps, nil
}

func isDuplicateKeyError(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return true
	}
	lc := strings.ToLower(err.Error())
	return strings.Contains(lc, "duplicate") || strings.Contains(lc, "unique")
}
