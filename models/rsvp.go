package models

import "time"

// Rsvp is the row shape shared by rsvps_casamento and rsvps_cha_panela.
// NomeNormalizado carries a lowercased copy of the name under a unique
// index, so the case-insensitive duplicate rule holds even when two
// submissions race past the service-layer check.
type Rsvp struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`

	NomeCompleto    string  `gorm:"column:nome_completo;size:100;not null" json:"nome_completo"`
	NomeNormalizado string  `gorm:"column:nome_normalizado;size:100;not null;uniqueIndex" json:"-"`
	Contato         string  `gorm:"column:contato;size:20;not null" json:"contato"`
	Mensagem        *string `gorm:"column:mensagem;size:500" json:"mensagem"`
}
