package users

import (
	"context"
	"time"

	"github.com/angelmondragon/geonmarket-backend/internal/repo"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository stores sign-in accounts. Emails are compared in their
// normalized form, so callers pass NormalizeEmail output.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.DB(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return repo.First[models.User](ctx, r.Base, "email", email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return repo.First[models.User](ctx, r.Base, "id", id)
}

// UpdateLastLogin stamps a successful sign-in without touching updated_at.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.DB(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_login_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.DB(ctx).Model(&models.User{}).Where("id = ?", id).Update("password_hash", hash).Error
}
