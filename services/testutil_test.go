package services

import (
	"testing"

	"wedding-backend/config"
	"wedding-backend/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory sqlite database with the full schema.
// The pool is capped at one connection so every query sees the same
// in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createTestGift(t *testing.T, db *gorm.DB, tipo models.EventType, nome string) *models.Gift {
	t.Helper()
	gift := models.Gift{Nome: nome, Ordem: 1}
	if err := db.Table(tipo.GiftTable()).Create(&gift).Error; err != nil {
		t.Fatalf("create gift: %v", err)
	}
	return &gift
}

func createTestGoal(t *testing.T, db *gorm.DB, target, current float64) *models.HoneymoonGoal {
	t.Helper()
	goal := models.HoneymoonGoal{TargetAmount: target, CurrentAmount: current, IsActive: true}
	if err := db.Create(&goal).Error; err != nil {
		t.Fatalf("create goal: %v", err)
	}
	return &goal
}

func reloadGift(t *testing.T, db *gorm.DB, tipo models.EventType, id string) *models.Gift {
	t.Helper()
	var gift models.Gift
	if err := db.Table(tipo.GiftTable()).Where("id = ?", id).First(&gift).Error; err != nil {
		t.Fatalf("reload gift: %v", err)
	}
	return &gift
}
