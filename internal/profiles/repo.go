package profiles

import (
	"context"

	"github.com/angelmondragon/geonmarket-backend/internal/repo"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists marketplace profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	CreateIfAbsent(ctx context.Context, profile *models.Profile) (bool, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, fields map[string]any) error
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

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return repo.First[models.Profile](ctx, r.Base, "id", id)
}

// CreateIfAbsent inserts profile unless a row with its id exists. It reports
// whether this call created the row.
func (r *repository) CreateIfAbsent(ctx context.Context, profile *models.Profile) (bool, error) {
	res := r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(profile)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateDetails writes the editable columns only. Token and cash balances are
// owned by the ledger and never pass through here.
func (r *repository) UpdateDetails(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	delete(fields, "tokens")
	delete(fields, "balance")
	if len(fields) == 0 {
		return nil
	}
	res := r.DB(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
