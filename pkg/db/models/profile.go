package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the marketplace-facing account record. Tokens and Balance are
// caches of the ledger and only move inside ledger transactions.
type Profile struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	Phone        *string   `gorm:"column:phone"`
	AvatarURL    *string   `gorm:"column:avatar_url"`
	Tokens       int64     `gorm:"column:tokens;not null;default:0;check:chk_profiles_tokens,tokens >= 0"`
	Balance      int64     `gorm:"column:balance;not null;default:0;check:chk_profiles_balance,balance >= 0"`
	Rating       float64   `gorm:"column:rating;not null;default:0"`
	TotalReviews int       `gorm:"column:total_reviews;not null;default:0"`
	ResponseRate int       `gorm:"column:response_rate;not null;default:0"`
	TotalSales   int       `gorm:"column:total_sales;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
