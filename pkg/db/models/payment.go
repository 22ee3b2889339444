package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/geonmarket-backend/pkg/enums"
)

// Payment records one completed monetary transaction. TransactionID is unique when set.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Amount        int64               `gorm:"column:amount;not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null"`
	Status        enums.PaymentStatus `gorm:"column:status;not null"`
	TransactionID *string             `gorm:"column:transaction_id;uniqueIndex"`
	Description   string              `gorm:"column:description;not null;default:''"`
	PaymentDate   time.Time           `gorm:"column:payment_date;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = time.Now().UTC()
	}
	return nil
}
