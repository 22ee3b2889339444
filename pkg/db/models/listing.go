package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/geonmarket-backend/pkg/enums"
)

// Listing is a posted material or equipment offer.
type Listing struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Title       string                 `gorm:"column:title;not null"`
	Description string                 `gorm:"column:description;not null;default:''"`
	Price       int64                  `gorm:"column:price;not null"`
	TokenPrice  int64                  `gorm:"column:token_price;not null"`
	Type        enums.TransactionType  `gorm:"column:type;not null"`
	Category    *enums.ListingCategory `gorm:"column:category"`
	Location    string                 `gorm:"column:location;not null"`
	Status      enums.ListingStatus    `gorm:"column:status;not null;default:'available'"`
	Images      []ListingImage         `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *Listing) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// CategoryValue returns the category or an empty string when unset.
func (l Listing) CategoryValue() string {
	if l.Category == nil {
		return ""
	}
	return string(*l.Category)
}

// ListingImage is one ordered image reference. Order runs 0..9.
type ListingImage struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ListingID  uuid.UUID `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:listing_images_order_idx"`
	ImageURL   string    `gorm:"column:image_url;not null"`
	ImageOrder int       `gorm:"column:image_order;not null;uniqueIndex:listing_images_order_idx"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *ListingImage) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
