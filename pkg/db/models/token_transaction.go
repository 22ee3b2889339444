package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/geonmarket-backend/pkg/enums"
)

// TokenTransaction is an append-only token movement. Amount is always a
// positive magnitude; the direction comes from TransactionType.
type TokenTransaction struct {
	ID              uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID                  `gorm:"column:user_id;type:uuid;not null;index"`
	Amount          int64                      `gorm:"column:amount;not null"`
	TransactionType enums.TokenTransactionType `gorm:"column:transaction_type;not null"`
	Description     string                     `gorm:"column:description;not null;default:''"`
	CreatedAt       time.Time                  `gorm:"column:created_at;autoCreateTime"`
}

func (t *TokenTransaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Signed returns the amount with the sign implied by the transaction type.
func (t TokenTransaction) Signed() int64 {
	return t.TransactionType.Sign() * t.Amount
}
