package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Contribution payment statuses.
const (
	ContributionPending  = "pending"
	ContributionApproved = "approved"
)

// HoneymoonGoal is the fundraising target. A single row carries
// is_active=true at a time; current_amount is the denormalized running
// sum of approved contributions, incremented transactionally.
type HoneymoonGoal struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`

	IsActive      bool    `gorm:"column:is_active;default:false;index" json:"isActive"`
	TargetAmount  float64 `gorm:"column:target_amount;type:decimal(10,2);not null" json:"targetAmount"`
	CurrentAmount float64 `gorm:"column:current_amount;type:decimal(10,2);not null;default:0" json:"currentAmount"`

	Contributions []Contribution `gorm:"foreignKey:HoneymoonID" json:"-"`
}

// Contribution is one append-only ledger row per payment event.
// TransactionID is the dedup key for webhook replays; the preference id
// links the speculative pending row to its eventual confirmation.
type Contribution struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`

	HoneymoonID   uint    `gorm:"column:honeymoon_id;not null;index" json:"honeymoonId"`
	Amount        float64 `gorm:"column:amount;type:decimal(10,2);not null" json:"amount"`
	TransactionID string  `gorm:"column:transaction_id;size:64;not null;uniqueIndex" json:"transactionId"`

	MercadoPagoPreferenceID *string `gorm:"column:mercado_pago_preference_id;size:64;uniqueIndex" json:"preferenceId,omitempty"`
	ContributorName         *string `gorm:"column:contributor_name;size:100" json:"contributorName,omitempty"`
	PaymentStatus           string  `gorm:"column:payment_status;size:16;not null;default:pending;index" json:"paymentStatus"`
}

func (c *Contribution) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
