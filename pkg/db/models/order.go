package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/geonmarket-backend/pkg/enums"
)

// OrderItem is a purchased line snapshot embedded in an order.
type OrderItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

// Order is one completed checkout, unique per external order id.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       string              `gorm:"column:order_id;not null;uniqueIndex"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Amount        int64               `gorm:"column:amount;not null"`
	OrderName     string              `gorm:"column:order_name;not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null"`
	Status        enums.OrderStatus   `gorm:"column:status;not null"`
	ListingID     *uuid.UUID          `gorm:"column:listing_id;type:uuid"`
	Items         []OrderItem         `gorm:"column:items;type:jsonb;serializer:json"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
