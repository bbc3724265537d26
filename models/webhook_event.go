package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentWebhookEvent stores every gateway notification payload with
// dedup metadata. The webhook endpoint always answers 200, so this log
// is the surface for manual follow-up when processing fails.
type PaymentWebhookEvent struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Provider        string         `gorm:"size:20;not null;uniqueIndex:ux_payment_webhook_events_provider_event,priority:1" json:"provider"`
	ProviderEventID string         `gorm:"size:191;not null;default:'';uniqueIndex:ux_payment_webhook_events_provider_event,priority:2" json:"provider_event_id"`
	EventType       string         `gorm:"size:100;not null;index" json:"event_type"`
	Payload         datatypes.JSON `gorm:"column:payload" json:"payload"`
	SignatureValid  bool           `gorm:"default:false" json:"signature_valid"`
	ProcessedAt     *time.Time     `json:"processed_at,omitempty"`
	ProcessingError string         `gorm:"type:text" json:"processing_error,omitempty"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time      `json:"-"`
}
