package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserAccount is a bank account a user pays from or is paid out to.
type UserAccount struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	BankName      string    `gorm:"column:bank_name;not null"`
	AccountNumber string    `gorm:"column:account_number;not null"`
	AccountHolder string    `gorm:"column:account_holder;not null"`
	IsDefault     bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (a *UserAccount) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
