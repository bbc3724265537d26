package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"wedding-backend/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func envOrDefault(key, def string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	return value
}

func mysqlDSNFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	user := u.User.Username()
	pass, _ := u.User.Password()
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "3306"
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", fmt.Errorf("mysql url missing database name")
	}

	q := u.Query()
	if q.Get("charset") == "" {
		q.Set("charset", "utf8mb4")
	}
	if q.Get("parseTime") == "" {
		q.Set("parseTime", "True")
	}
	if q.Get("loc") == "" {
		q.Set("loc", "Local")
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s", user, pass, host, port, dbName, q.Encode()), nil
}

func resolveMySQLDSN() (string, error) {
	raw := strings.TrimSpace(os.Getenv("MYSQL_URL"))
	if raw == "" {
		raw = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}

	if raw != "" {
		if strings.HasPrefix(raw, "mysql://") {
			return mysqlDSNFromURL(raw)
		}
		return raw, nil
	}

	user := envOrDefault("DB_USER", "root")
	pass := envOrDefault("DB_PASS", "")
	host := envOrDefault("DB_HOST", "127.0.0.1")
	port := envOrDefault("DB_PORT", "3306")
	dbName := envOrDefault("DB_NAME", "casamento_db")

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, pass, host, port, dbName,
	), nil
}

// Migrate creates the schema. The gift and rsvp models back two tables
// each, one per event type, so those migrate table-scoped; tests reuse
// this against their own database handle.
func Migrate(db *gorm.DB) error {
	for _, tipo := range []models.EventType{models.EventCasamento, models.EventChaPanela} {
		if err := db.Table(tipo.GiftTable()).AutoMigrate(&models.Gift{}); err != nil {
			return fmt.Errorf("migrate %s: %w", tipo.GiftTable(), err)
		}
		if err := db.Table(tipo.RsvpTable()).AutoMigrate(&models.Rsvp{}); err != nil {
			return fmt.Errorf("migrate %s: %w", tipo.RsvpTable(), err)
		}
	}
	return db.AutoMigrate(
		&models.HoneymoonGoal{},
		&models.Contribution{},
		&models.PaymentWebhookEvent{},
	)
}

func ConnectDatabase() error {
	dsn, err := resolveMySQLDSN()
	if err != nil {
		return err
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: newLogger})
	if err != nil {
		return err
	}

	DB = db

	if err := Migrate(DB); err != nil {
		return err
	}

	SeedDatabase(DB)
	return nil
}

type seedGift struct {
	nome      string
	descricao string
	ordem     int
}

var weddingSeedGifts = []seedGift{
	{"Jogo de panelas antiaderente", "Conjunto com 5 peças", 1},
	{"Jogo de cama queen", "400 fios, cor neutra", 2},
	{"Aparelho de jantar", "Serviço completo para 6 pessoas", 3},
	{"Liquidificador", "Potência mínima de 800W", 4},
	{"Air fryer", "Capacidade de 4 litros ou mais", 5},
	{"Cafeteira elétrica", "", 6},
	{"Jogo de toalhas de banho", "4 peças", 7},
	{"Aspirador de pó", "", 8},
}

var showerSeedGifts = []seedGift{
	{"Kit utensílios de silicone", "", 1},
	{"Tábua de corte de bambu", "", 2},
	{"Jogo de potes herméticos", "Conjunto com 10 peças", 3},
	{"Escorredor de louça", "", 4},
	{"Kit assadeiras", "3 tamanhos", 5},
	{"Garrafa térmica", "1 litro", 6},
}

// SeedDatabase fills empty tables with the initial registry and, when
// HONEYMOON_TARGET is set, the active fundraising goal. Existing data
// is never touched.
func SeedDatabase(db *gorm.DB) {
	seedGiftTable := func(tipo models.EventType, items []seedGift) {
		var count int64
		if err := db.Table(tipo.GiftTable()).Count(&count).Error; err != nil {
			log.Printf("warning: could not count %s: %v", tipo.GiftTable(), err)
			return
		}
		if count > 0 {
			return
		}
		for _, item := range items {
			gift := models.Gift{
				Nome:      item.nome,
				Descricao: item.descricao,
				Ordem:     item.ordem,
			}
			if err := db.Table(tipo.GiftTable()).Create(&gift).Error; err != nil {
				log.Printf("warning: failed to seed gift %q: %v", item.nome, err)
			}
		}
		log.Printf("%s seeded with %d gifts", tipo.GiftTable(), len(items))
	}

	seedGiftTable(models.EventCasamento, weddingSeedGifts)
	seedGiftTable(models.EventChaPanela, showerSeedGifts)

	rawTarget := strings.TrimSpace(os.Getenv("HONEYMOON_TARGET"))
	if rawTarget == "" {
		return
	}
	target, err := strconv.ParseFloat(rawTarget, 64)
	if err != nil || target <= 0 {
		log.Printf("warning: ignoring invalid HONEYMOON_TARGET %q", rawTarget)
		return
	}

	var goalCount int64
	if err := db.Model(&models.HoneymoonGoal{}).Where("is_active = ?", true).Count(&goalCount).Error; err != nil {
		log.Printf("warning: could not count honeymoon goals: %v", err)
		return
	}
	if goalCount > 0 {
		return
	}

	goal := models.HoneymoonGoal{
		TargetAmount: target,
		IsActive:     true,
	}
	if err := db.Create(&goal).Error; err != nil {
		log.Printf("warning: failed to seed honeymoon goal: %v", err)
		return
	}
	log.Printf("honeymoon goal seeded with target %.2f", target)
}
