package accounts

import (
	"context"

	"github.com/angelmondragon/geonmarket-backend/internal/repo"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists user bank accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, account *models.UserAccount) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserAccount, error)
	FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.UserAccount, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, account *models.UserAccount) error {
	return r.DB(ctx).Create(account).Error
}

// ListByUser returns the default account first, then the newest.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserAccount, error) {
	var rows []models.UserAccount
	if err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC").
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.UserAccount, error) {
	var account models.UserAccount
	if err := r.DB(ctx).Where("id = ? AND user_id = ?", id, userID).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	if err := r.DB(ctx).Model(&models.UserAccount{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
