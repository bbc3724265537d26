package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GiftStatus is derived by reading code; the table itself only stores the
// two booleans plus the reservation timestamps.
type GiftStatus string

const (
	GiftAvailable GiftStatus = "available"
	GiftReserved  GiftStatus = "reserved"
	GiftExpired   GiftStatus = "expired"
	GiftPurchased GiftStatus = "purchased"
)

// Gift is the row shape shared by the presentes_casamento and
// presentes_cha_panela tables. The table is selected per request via
// EventType.GiftTable(), mirroring the two identical registries.
type Gift struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	Nome        string `gorm:"column:nome;size:255;not null" json:"nome"`
	Descricao   string `gorm:"column:descricao;type:text" json:"descricao"`
	LinkExterno string `gorm:"column:link_externo;size:500" json:"link_externo"`
	Imagem      string `gorm:"column:imagem;size:500" json:"imagem"`
	Ordem       int    `gorm:"column:ordem;default:0;index" json:"ordem"`

	Reservado bool `gorm:"column:reservado;default:false" json:"reservado"`
	IsBought  bool `gorm:"column:is_bought;default:false" json:"is_bought"`

	ReservedBy           *string    `gorm:"column:reserved_by;size:100" json:"reserved_by"`
	ReservedPhoneHash    *string    `gorm:"column:reserved_phone_hash;size:64" json:"-"`
	ReservedPhoneDisplay *string    `gorm:"column:reserved_phone_display;size:32" json:"reserved_phone_display"`
	ReservedAt           *time.Time `gorm:"column:reserved_at" json:"reserved_at"`
	ReservedUntil        *time.Time `gorm:"column:reserved_until" json:"reserved_until"`

	// telefone_contato predates the registry rework and now stores the
	// 6-digit reservation access code, never a phone number. It is only
	// returned to the guest once, at reservation time.
	TelefoneContato *string `gorm:"column:telefone_contato;size:20" json:"-"`

	PurchasedAt   *time.Time `gorm:"column:purchased_at" json:"purchased_at"`
	PurchasedBy   *string    `gorm:"column:purchased_by;size:100" json:"purchased_by,omitempty"`
	TransactionID *string    `gorm:"column:transaction_id;size:64" json:"-"`
}

func (g *Gift) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// Status derives the lifecycle state at the given instant. A bought gift
// may still carry reservado=true in storage; purchase wins.
func (g *Gift) Status(now time.Time) GiftStatus {
	if g.IsBought {
		return GiftPurchased
	}
	if !g.Reservado {
		return GiftAvailable
	}
	if g.ReservedUntil != nil && now.After(*g.ReservedUntil) {
		return GiftExpired
	}
	return GiftReserved
}
