package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is embedded by the domain repositories. Each WithTx copy rebinds it to
// the transaction handle.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx. A nil ctx returns the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// First loads the row of T whose column equals value. Missing rows surface as
// gorm.ErrRecordNotFound.
func First[T any](ctx context.Context, b Base, column string, value any) (*T, error) {
	var row T
	if err := b.DB(ctx).Where(column+" = ?", value).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Recent loads up to limit rows of T owned by userID, newest first by
// orderColumn. A non-positive limit returns every row.
func Recent[T any](ctx context.Context, b Base, userID uuid.UUID, orderColumn string, limit int) ([]T, error) {
	q := b.DB(ctx).Where("user_id = ?", userID).Order(orderColumn + " DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []T
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
